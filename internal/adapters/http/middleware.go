package httpadapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

const requestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r)
	})
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		remoteAddr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			remoteAddr = host
		}

		logAttrs := []any{
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", recorder.bytesWritten,
			"remote_addr", remoteAddr,
			"user_agent", r.UserAgent(),
		}

		switch {
		case recorder.statusCode >= 500:
			slog.Error("http_request", logAttrs...)
		case recorder.statusCode >= 400:
			slog.Warn("http_request", logAttrs...)
		default:
			slog.Info("http_request", logAttrs...)
		}
	})
}

// trafficControl sheds load before it reaches the handlers: a token bucket for
// request rate and a bounded slot pool for concurrency.
type trafficControl struct {
	limiter  *rate.Limiter
	slots    chan struct{}
	wait     time.Duration
	onReject func(reason string)
}

func newTrafficControl(rps float64, burst, maxInFlight int, wait time.Duration, onReject func(string)) *trafficControl {
	tc := &trafficControl{wait: wait, onReject: onReject}
	if rps > 0 {
		if burst <= 0 {
			burst = int(math.Ceil(rps))
		}
		tc.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	if maxInFlight > 0 {
		tc.slots = make(chan struct{}, maxInFlight)
	}
	return tc
}

func (tc *trafficControl) reject(reason string) {
	if tc.onReject != nil {
		tc.onReject(reason)
	}
}

func (tc *trafficControl) rateLimit(next http.Handler) http.Handler {
	if tc.limiter == nil {
		return next
	}
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(tc.limiter.Limit())))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbePath(r.URL.Path) || tc.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		tc.reject("rate_limited")
		w.Header().Set("Retry-After", retryAfter)
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	})
}

func (tc *trafficControl) backpressure(next http.Handler) http.Handler {
	if tc.slots == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !tc.acquire(r.Context()) {
			tc.reject("overloaded")
			w.Header().Set("Retry-After", "1")
			writeError(w, domain.WrapError(domain.ErrTemporary, "admit request", fmt.Errorf("server overloaded")))
			return
		}
		defer func() { <-tc.slots }()
		next.ServeHTTP(w, r)
	})
}

func (tc *trafficControl) acquire(ctx context.Context) bool {
	select {
	case tc.slots <- struct{}{}:
		return true
	default:
	}
	if tc.wait <= 0 {
		return false
	}
	timer := time.NewTimer(tc.wait)
	defer timer.Stop()
	select {
	case tc.slots <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	return newTrafficControl(0, 0, maxInFlight, wait, nil).backpressure(next)
}

// bearerAuthMiddleware guards /v1/ routes when an API key is configured.
func bearerAuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") || isAuthorizedBearerHeader(r.Header.Get("Authorization"), apiKey) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="corporate-action-intel"`)
		writeError(w, domain.WrapError(domain.ErrUnauthorized, "authenticate", fmt.Errorf("missing or invalid bearer token")))
	})
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return token == expectedToken
}

func isProbePath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
