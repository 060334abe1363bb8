package safe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_PanicBecomesError(t *testing.T) {
	f := Func(context.Background(), "boom", func(context.Context) error {
		panic("bad")
	})
	err := f()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom: panic: bad")
}

func TestFunc_PassesError(t *testing.T) {
	want := errors.New("x")
	f := Func(context.Background(), "ok", func(context.Context) error { return want })
	assert.ErrorIs(t, f(), want)
}

func TestGo_Recovers(t *testing.T) {
	done := make(chan struct{})
	Go(context.Background(), "p", func(context.Context) {
		defer close(done)
		panic("bad")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}
