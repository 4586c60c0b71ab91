package codechat

import (
	"net/http"
	"time"
)

// Middleware is a standard Go HTTP middleware. It is a type alias so any
// func(http.Handler) http.Handler is compatible without casting.
type Middleware = func(http.Handler) http.Handler

// NoStore sets the Cache-Control header every HTTP response in §4.6 must
// carry: rendered HTML and static assets are never cached, since the
// underlying file or render result can change between requests.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, max-age=0")
		next.ServeHTTP(w, r)
	})
}

// AccessLog logs each request's method, path, status, and duration through
// the given Logger.
func AccessLog(log *Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

// Recovery recovers panics in downstream handlers and logs them instead of
// crashing the HTTP listener goroutine; per §7 a fatal failure elsewhere
// raises the service-wide shutdown event, but a single misbehaving request
// handler should not bring down the whole server.
func Recovery(log *Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered", "error", err, "path", r.URL.Path)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
