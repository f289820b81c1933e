package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	ctx := context.WithValue(context.Background(), SessionIdKey, "s1")
	ctx = context.WithValue(ctx, UserIdKey, "u1")

	l.InfoCtx(ctx, "connected")
	l.ErrorCtx(ctx, "fetch failed", zap.String("cause", "timeout"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "connected", entries[0].Message)
	assert.Equal(t, "s1", entries[0].ContextMap()["session_id"])
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, "timeout", entries[1].ContextMap()["cause"])
}

func TestContextFields_NilContextValues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	l.InfoCtx(context.Background(), "bare")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Context)
}

func TestGlobalLogger(t *testing.T) {
	l := New(DevelopmentMode)
	SetGlobalLogger(l)
	assert.Same(t, l, GetGlobalLogger())
}
