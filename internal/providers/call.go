package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCallTimeout  = errors.New("PROVIDER_CALL_TIMEOUT")
	ErrCallCanceled = errors.New("PROVIDER_CALL_CANCELED")
	ErrCallPanicked = errors.New("PROVIDER_CALL_PANICKED")
)

// Call runs fn with a deadline derived from ctx and timeout (timeout <= 0
// means ctx alone bounds the call). fn receives the derived context and is
// expected to honour it; if it does not, Call still returns as soon as the
// deadline passes and the late result is discarded. Once ctx itself is done
// the result is always ErrCallCanceled.
func Call[R any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) R) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCallCanceled, err)
	}

	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		value R
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrCallPanicked, rec)}
			}
		}()
		done <- outcome{value: fn(callCtx)}
	}()

	select {
	case out := <-done:
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrCallCanceled, err)
		}
		return out.value, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %v", ErrCallCanceled, ctx.Err())
		}
		return zero, fmt.Errorf("%w after %s", ErrCallTimeout, timeout)
	}
}
