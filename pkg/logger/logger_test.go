package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_EnrichesFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)

	ctx := context.Background()
	ctx = WithContext(ctx, RequestIDKey, "req-1")
	ctx = WithContext(ctx, UserIDKey, "user-1")
	ctx = WithContext(ctx, GenerationIDKey, int64(42))

	Error(ctx, "generation failed", assert.AnError, "shape", "gear")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "generation failed", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "user-1", record["user_id"])
	assert.EqualValues(t, 42, record["generation_id"])
	assert.Equal(t, "gear", record["shape"])
	assert.Equal(t, assert.AnError.Error(), record["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
