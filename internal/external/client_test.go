package external

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycast/internal/types"
)

func newTestClient(t *testing.T, maxRetries int) *BaseClient {
	t.Helper()
	return NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-"+t.Name(),
		RetryPolicy{MaxRetries: maxRetries, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond},
		"skycast-test/1.0",
		WithSleepFunc(func(time.Duration) {}),
	)
}

func TestDoSuccessPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "skycast-test/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, 3)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoPropagatesRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
	}))
	defer srv.Close()

	c := newTestClient(t, 0)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-123"))

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", got)
}

func TestDoRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, 3)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustedRetriesMapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, 2)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	_, err := c.Do(req)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamUnavailable))
}

func TestDo429MapsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, 1)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	_, err := c.Do(req)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamRateLimited))
}

func TestDoDoesNotRetryOn4xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, 3)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err, "non-429 4xx responses are returned to the caller as-is")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsRetryAfterSeconds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-retry-after",
		RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: 5 * time.Second},
		"skycast-test/1.0",
		WithSleepFunc(func(d time.Duration) { slept = append(slept, d) }),
	)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])
}

func TestComputeBackoffClampsToMaxWait(t *testing.T) {
	c := NewBaseClient(
		&http.Client{},
		"test-backoff",
		RetryPolicy{MaxRetries: 10, MinWait: 100 * time.Millisecond, MaxWait: 500 * time.Millisecond},
		"",
	)

	for attempt := 0; attempt < 10; attempt++ {
		wait := c.computeBackoff(attempt, nil)
		assert.GreaterOrEqual(t, wait, 100*time.Millisecond)
		assert.LessOrEqual(t, wait, 500*time.Millisecond)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, 0)

	// Trip the breaker: more than 5 consecutive failures.
	for i := 0; i < 6; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		_, err := c.Do(req)
		require.Error(t, err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamRateLimited), "open breaker maps to rate limited")
}
