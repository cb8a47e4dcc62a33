package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Check reports whether a dependency the API needs is reachable.
type Check func(ctx context.Context) error

type RouterConfig struct {
	// RequestTimeout bounds every request. Zero means 15s.
	RequestTimeout time.Duration
	// Ready lists the dependencies /readyz reports on, by name.
	Ready map[string]Check
	// CheckTimeout bounds a single readiness check. Zero means 2s.
	CheckTimeout time.Duration
}

// NewRouter returns the base router: request ids, panic recovery, a request
// deadline, /healthz for liveness and /readyz for dependency readiness.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(cfg.Ready, cfg.CheckTimeout))
	return r
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Failed []string          `json:"failed,omitempty"`
}

// readyHandler runs every check in parallel and answers 503 naming the
// failed ones.
func readyHandler(checks map[string]Check, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu  sync.Mutex
			wg  sync.WaitGroup
			out = readiness{Status: "ok", Checks: map[string]string{}}
		)
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				res := "ok"
				if err := check(ctx); err != nil {
					res = err.Error()
				}
				mu.Lock()
				out.Checks[name] = res
				if res != "ok" {
					out.Failed = append(out.Failed, name)
				}
				mu.Unlock()
			}(name, check)
		}
		wg.Wait()

		code := http.StatusOK
		if len(out.Failed) > 0 {
			sort.Strings(out.Failed)
			out.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}
