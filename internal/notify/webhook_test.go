package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/haatos/simple-release/internal/release"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name     string
		step     release.Step
		status   release.Status
		msg      string
		expected string
	}{
		{"pending step", release.StepShadowUp, release.StatusPending, "", "acme/shop v1.2.0: shadow up"},
		{"done", release.StepPromoted, release.StatusDone, "", "acme/shop v1.2.0 released"},
		{
			"failed with message",
			release.StepCheckedOut,
			release.StatusFailed,
			"tag v1.2.0 not found",
			"acme/shop v1.2.0 failed at checked out: tag v1.2.0 not found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Format("acme/shop", "v1.2.0", tc.step, tc.status, tc.msg))
		})
	}
}

func TestWebhook_ForRelease(t *testing.T) {
	t.Run("success - progress is posted as json text", func(t *testing.T) {
		// arrange
		received := make(chan message, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var m message
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&m))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			received <- m
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()
		wh := NewWebhook(srv.URL, srv.Client(), nil)
		defer wh.Close()

		// act
		wh.ForRelease("acme/shop", "v1.2.0").
			Report(context.Background(), release.StepPromoted, release.StatusDone, "")

		// assert
		assert.Equal(t, "acme/shop v1.2.0 released", (<-received).Text)
	})
	t.Run("success - empty url does nothing", func(t *testing.T) {
		// arrange
		wh := NewWebhook("", nil, nil)

		// act
		reporter := wh.ForRelease("acme/shop", "v1.2.0")

		// assert
		assert.Equal(t, release.NopReporter{}, reporter)
	})
	t.Run("failure - server errors do not propagate", func(t *testing.T) {
		// arrange
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		wh := NewWebhook(srv.URL, srv.Client(), nil)

		// act & assert
		assert.NotPanics(t, func() {
			wh.ForRelease("acme/shop", "v1.2.0").
				Report(context.Background(), release.StepInit, release.StatusPending, "")
			wh.Close()
		})
	})
	t.Run("success - slow endpoint does not block reporting", func(t *testing.T) {
		// arrange
		var (
			mu       sync.Mutex
			received []string
		)
		unblock := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-unblock
			var m message
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&m))
			mu.Lock()
			received = append(received, m.Text)
			mu.Unlock()
		}))
		defer srv.Close()
		wh := NewWebhook(srv.URL, srv.Client(), nil)
		reporter := wh.ForRelease("acme/shop", "v1.2.0")
		ctx := context.Background()

		// act
		start := time.Now()
		reporter.Report(ctx, release.StepInit, release.StatusPending, "")
		reporter.Report(ctx, release.StepCloned, release.StatusPending, "")
		reporter.Report(ctx, release.StepPromoted, release.StatusDone, "")
		elapsed := time.Since(start)
		close(unblock)
		wh.Close()

		// assert
		mu.Lock()
		defer mu.Unlock()
		assert.Less(t, elapsed, time.Second)
		assert.Equal(t, []string{
			"acme/shop v1.2.0: init",
			"acme/shop v1.2.0: cloned",
			"acme/shop v1.2.0 released",
		}, received)
	})
	t.Run("success - reports after close are dropped", func(t *testing.T) {
		// arrange
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected notification")
		}))
		defer srv.Close()
		wh := NewWebhook(srv.URL, srv.Client(), nil)
		wh.Close()

		// act & assert
		assert.NotPanics(t, func() {
			wh.ForRelease("acme/shop", "v1.2.0").
				Report(context.Background(), release.StepInit, release.StatusPending, "")
			wh.Close()
		})
	})
}

func TestWebhook_Send(t *testing.T) {
	t.Run("failure - non 2xx status is an error", func(t *testing.T) {
		// arrange
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		wh := NewWebhook(srv.URL, srv.Client(), nil)

		// act
		err := wh.Send(context.Background(), "hello")

		// assert
		assert.ErrorContains(t, err, "502")
	})
	t.Run("failure - slow server times out", func(t *testing.T) {
		// arrange
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)
		wh := NewWebhook(srv.URL, srv.Client(), nil)
		wh.timeout = 20 * time.Millisecond

		// act
		err := wh.Send(context.Background(), "hello")

		// assert
		assert.Error(t, err)
	})
	t.Run("success - cancelled context still delivers", func(t *testing.T) {
		// arrange
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		wh := NewWebhook(srv.URL, srv.Client(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// act
		err := wh.Send(ctx, "hello")

		// assert
		assert.NoError(t, err)
	})
}
