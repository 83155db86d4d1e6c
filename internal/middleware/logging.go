package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"leafdoctor/internal/logger"
)

// statusRecorder zapamiętuje kod odpowiedzi
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(logger *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Round(time.Microsecond)
		if rec.status >= http.StatusInternalServerError {
			logger.Error("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, duration)
			return
		}
		logger.Info("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, duration)
	})
}
