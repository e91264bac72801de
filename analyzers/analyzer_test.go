package analyzers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warn", SeverityWarn.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "unknown", Severity(42).String())

	b, err := SeverityWarn.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warn", string(b))
}

func TestChain(t *testing.T) {
	first := Func(func(context.Context, []byte) ([]Finding, error) {
		return []Finding{Info("one")}, nil
	})
	second := Func(func(_ context.Context, data []byte) ([]Finding, error) {
		return []Finding{Warn("two: %s", data)}, nil
	})

	got, err := Chain(first, Passthrough, second).Inspect(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []Finding{Info("one"), Warn("two: x")}, got)
	assert.Equal(t, 1, Count(got, SeverityWarn))
	assert.Equal(t, 0, Count(got, SeverityError))
}

func TestChainStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := Func(func(context.Context, []byte) ([]Finding, error) { return nil, boom })
	never := Func(func(context.Context, []byte) ([]Finding, error) {
		t.Fatal("analyzer after a failure must not run")
		return nil, nil
	})

	_, err := Chain(failing, never).Inspect(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}
