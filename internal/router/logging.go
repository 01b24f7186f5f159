package router

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"teamcal/internal/auth"
)

// principalHolder lets the auth middleware report the resolved principal
// back out to the logging wrapper that runs around it.
type principalHolder struct {
	p *auth.Principal
}

type holderKeyType int

const holderKey holderKeyType = 1

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	bytes       int
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *Router) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		holder := &principalHolder{}
		req = req.WithContext(context.WithValue(req.Context(), holderKey, holder))

		next.ServeHTTP(rec, req)

		dur := time.Since(start)
		logTmp := r.logger.Debug()
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			logTmp = r.logger.Info()
		}
		logTmp = logTmp.
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", statusOrDefault(rec.status)).
			Int("bytes", rec.bytes).
			Float64("duration_ms", float64(dur.Microseconds())/1000.0).
			Str("ip", realIP(req)).
			Str("user_agent", req.Header.Get("User-Agent"))
		if holder.p != nil {
			logTmp = logTmp.Str("user", holder.p.Username)
		}
		logTmp.Msg("http request")
	})
}

func realIP(req *http.Request) string {
	xff := req.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}
	if xr := req.Header.Get("X-Real-IP"); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func statusOrDefault(st int) int {
	if st == 0 {
		return http.StatusOK
	}
	return st
}
