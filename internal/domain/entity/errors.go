package entity

import "errors"

// 领域校验错误
var (
	ErrNameRequired    = errors.New("name is required")
	ErrNameTooLong     = errors.New("name must be at most 100 characters")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrUnknownShape    = errors.New("unknown shape type")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidTxnType  = errors.New("invalid credit transaction type")
	ErrAlreadyTerminal = errors.New("generation already finished")
)
