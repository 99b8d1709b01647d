package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fast() Backoff {
	return Backoff{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(), "download", func(context.Context) error {
		calls++
		if calls < 3 {
			return HTTPStatusError(http.StatusServiceUnavailable)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(), "download", func(context.Context) error {
		calls++
		return HTTPStatusError(http.StatusNotFound)
	})
	assert.EqualError(t, err, "unexpected status 404")
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(), "download", func(context.Context) error {
		calls++
		return HTTPStatusError(http.StatusBadGateway)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)

	var te *TransientError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Backoff{Attempts: 5, Initial: time.Hour}, "download", func(context.Context) error {
		calls++
		cancel()
		return HTTPStatusError(http.StatusServiceUnavailable)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("bad request")))
	assert.True(t, IsTransient(HTTPStatusError(http.StatusTooManyRequests)))
	assert.True(t, IsTransient(fmt.Errorf("get: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsTransient(fmt.Errorf("copy: %w", &TransientError{Err: errors.New("x")})))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 200*time.Millisecond, b.Delay(1))
	assert.Equal(t, 300*time.Millisecond, b.Delay(2))
	assert.Equal(t, 300*time.Millisecond, b.Delay(5))

	j := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Jitter: 0.5}
	for i := 0; i < 20; i++ {
		d := j.Delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
