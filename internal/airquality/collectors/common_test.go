package collectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want error
	}{
		"deadline":         {context.DeadlineExceeded, airquality.ErrCollectorTimeout},
		"wrapped deadline": {fmt.Errorf("fetch: %w", context.DeadlineExceeded), airquality.ErrCollectorTimeout},
		"net timeout":      {timeoutError{}, airquality.ErrCollectorTimeout},
		"canceled":         {context.Canceled, airquality.ErrCollectorUnavailable},
		"refused":          {errors.New("dial tcp: connection refused"), airquality.ErrCollectorUnavailable},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if err := classifyTransportError(tt.err); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClassifyTransportErrorClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Timeout: 20 * time.Millisecond}
	_, err := client.Get(srv.URL)
	if err == nil {
		t.Fatal("expected the client to time out")
	}
	if got := classifyTransportError(err); !errors.Is(got, airquality.ErrCollectorTimeout) {
		t.Fatalf("expected ErrCollectorTimeout, got %v", got)
	}
}
