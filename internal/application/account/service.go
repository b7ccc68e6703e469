// Package account 提供用户镜像与资料管理
package account

import (
	"context"
	"errors"
	"strings"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/repository"
	"shape-forge-api/internal/domain/service"
	apperrors "shape-forge-api/pkg/errors"
	"shape-forge-api/pkg/logger"
)

const signupBonusDescription = "Welcome bonus"

type Config struct {
	SignupBonus int
}

type Service struct {
	tx       repository.Transactor
	users    repository.UserRepository
	gens     repository.GenerationRepository
	billing  *billing.Service
	identity service.IdentityProvider
	cfg      Config
}

func NewService(
	tx repository.Transactor,
	users repository.UserRepository,
	gens repository.GenerationRepository,
	billingSvc *billing.Service,
	identity service.IdentityProvider,
	cfg Config,
) *Service {
	return &Service{
		tx:       tx,
		users:    users,
		gens:     gens,
		billing:  billingSvc,
		identity: identity,
		cfg:      cfg,
	}
}

// LoginURL 身份提供方登录地址
func (s *Service) LoginURL(state string) string {
	return s.identity.AuthCodeURL(state)
}

// SignIn 使用授权码登录，首次登录时创建本地用户
func (s *Service) SignIn(ctx context.Context, code string) (*entity.User, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("missing authorization code")
	}
	ident, err := s.identity.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.ErrIdentityFailed.WithError(err)
	}
	user, _, err := s.EnsureUser(ctx, ident)
	return user, err
}

// EnsureUser 幂等地镜像外部身份，返回用户及是否新建
func (s *Service) EnsureUser(ctx context.Context, ident *service.Identity) (*entity.User, bool, error) {
	if ident == nil || strings.TrimSpace(ident.Subject) == "" {
		return nil, false, apperrors.ErrIdentityFailed.WithDetail("identity has no subject")
	}

	existing, err := s.users.GetByID(ctx, ident.Subject)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	user := entity.NewUser(ident.Subject, ident.Email, ident.Name)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if err := s.billing.EnsureAccount(ctx, user.ID); err != nil {
			return err
		}
		if s.cfg.SignupBonus > 0 {
			_, err := s.billing.Grant(ctx, billing.GrantInput{
				UserID:      user.ID,
				Amount:      s.cfg.SignupBonus,
				Type:        entity.TransactionBonus,
				Description: signupBonusDescription,
			})
			return err
		}
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// 并发首次登录，另一请求已创建
		existing, getErr := s.users.GetByID(ctx, ident.Subject)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}

	s.billing.Invalidate(ctx, user.ID)
	logger.Info(ctx, "user mirrored from identity provider", "user_id", user.ID)
	return user, true, nil
}

// Profile 获取用户资料
func (s *Service) Profile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile 更新姓名与邮箱
func (s *Service) UpdateProfile(ctx context.Context, userID, name, email string) (*entity.User, error) {
	if err := entity.ValidateProfile(name, email); err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail(err.Error())
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(name)
	user.Email = strings.TrimSpace(email)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete 删除账户及其全部数据，confirmEmail 必须与账户邮箱一致
func (s *Service) Delete(ctx context.Context, userID, confirmEmail string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(confirmEmail), user.Email) {
		return apperrors.ErrInvalidParam.WithDetail("confirmation email does not match")
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.billing.DeleteAccount(ctx, userID); err != nil {
			return err
		}
		if err := s.gens.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return s.users.Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.billing.Invalidate(ctx, userID)
	logger.Info(ctx, "account deleted", "user_id", userID)
	return nil
}
