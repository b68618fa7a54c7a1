package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	lg := New("test-logger")
	require.NotNil(t, lg)
	lg.Info("hello", "k", "v")
	lg.Debug("debug")
	lg.Warn("warn")
	lg.Error("error")
	lg.Trace("trace")
}

func TestWithAttachesCommonFields(t *testing.T) {
	lg := New("test-logger").With("request_id", "abc")
	sub := lg.NewSystem("sub")
	require.NotNil(t, sub)
	sub.Info("scoped message")
}

func TestContextRoundTrip(t *testing.T) {
	lg := New("ctx-logger")
	ctx := SetContextLogger(context.Background(), lg)
	require.Equal(t, lg, FromContext(ctx))
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
	got.Info("should not panic")
}
