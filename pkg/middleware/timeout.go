package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Timeout enforces a per-request deadline. The wrapped handler runs in its
// own goroutine; if the deadline passes before it writes, the client gets a
// 504 and anything the handler writes afterwards is discarded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{w: w, header: make(http.Header)}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if dw.timeOut() {
					slog.Warn("request deadline exceeded",
						"method", r.Method,
						"path", r.URL.Path,
						"timeout", timeout,
					)
				}
			}
		})
	}
}

// deadlineWriter hands the handler goroutine a private header map and
// serialises all writes to the real ResponseWriter, so the 504 path and a
// slow handler can never interleave on the wire.
type deadlineWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu       sync.Mutex
	wrote    bool
	timedOut bool
}

func (d *deadlineWriter) Header() http.Header { return d.header }

func (d *deadlineWriter) WriteHeader(code int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timedOut || d.wrote {
		return
	}
	d.flushHeader()
	d.w.WriteHeader(code)
}

func (d *deadlineWriter) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !d.wrote {
		d.flushHeader()
		d.w.WriteHeader(http.StatusOK)
	}
	return d.w.Write(b)
}

// flushHeader copies the handler's private headers to the real writer.
// Callers must hold mu and check wrote/timedOut first.
func (d *deadlineWriter) flushHeader() {
	d.wrote = true
	dst := d.w.Header()
	for k, v := range d.header {
		dst[k] = v
	}
}

// timeOut claims the response for the 504. It reports false when the handler
// already started writing, in which case the response is left as is.
func (d *deadlineWriter) timeOut() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wrote {
		return false
	}
	d.timedOut = true
	d.w.Header().Set("Content-Type", "application/json")
	d.w.WriteHeader(http.StatusGatewayTimeout)
	d.w.Write([]byte(`{"error":"request timed out"}`))
	return true
}
