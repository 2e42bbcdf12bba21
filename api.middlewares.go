package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewareMap contains middlewares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public MiddlewareFunc
	ops    MiddlewareFunc
}

// MiddlewaresStacks builds the public and the ops stacks of middlewares.
// The extra middlewares are appended to the public stack only.
func (h *BaseHandler) MiddlewaresStacks(extra ...MiddlewareFunc) (*Middlewares, *Middlewares) {
	public := Middlewares{
		h.RequestIDMiddleware,
		h.PanicRecoveryMiddleware,
		h.RequestsCounterMiddleware,
		h.StatsMiddleware,
		h.CoreMiddleware,
		h.MaintenanceModeMiddleware,
	}
	if h.config != nil && h.config.Server.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(h.config.Server.RateLimit), h.config.Server.RateBurst)
		public = append(public, h.RateLimitMiddleware(limiter))
	}
	public = append(public, extra...)

	ops := Middlewares{
		h.RequestIDMiddleware,
		h.PanicRecoveryMiddleware,
		h.RequestsCounterMiddleware,
		h.StatsMiddleware,
		h.CoreMiddleware,
	}
	return &public, &ops
}

// CoreMiddleware setup the duration measurement for each request and logs its result.
func (h *BaseHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := h.clock.Now()
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		logger := h.logger.With(zap.String("request.id", requestID))
		ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
		r = r.WithContext(ctx)

		logger.Info(
			"request",
			zap.Uint64("request.num", GetRequestNumberFromContext(r.Context())),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		next(w, r, ps)
		logger.Info(
			"request",
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Duration("request.duration", h.clock.Now().Sub(start)),
		)
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.num` field.
func (h *BaseHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, atomic.AddUint64(&h.stats.called, 1))
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// RequestIDMiddleware generates and add a unique id to the request context.
func (h *BaseHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := h.idsHandler.Generate(RequestIDPrefix)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)
		next(w, r, ps)
	}
}

// StatsMiddleware records the response status code of each request.
func (h *BaseHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewCustomResponseWriter(w)
		next(cw, r, ps)
		h.stats.mu.Lock()
		h.stats.status[cw.Status()]++
		h.stats.mu.Unlock()
		h.logger.Debug("response",
			zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
			zap.Int("response.status", cw.Status()),
			zap.Int("response.bytes", cw.Bytes()),
		)
	}
}

// MaintenanceModeMiddleware responds with 503 and the maintenance
// message while the maintenance mode is enabled.
func (h *BaseHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !h.mode.enabled.Load() {
			next(w, r, ps)
			return
		}
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(
			map[string]interface{}{
				"requestid": requestID,
				"message":   "service currently unvailable.",
				"reason":    h.mode.message,
				"since":     h.mode.started.Format(time.RFC1123),
			},
		); err != nil {
			h.logger.Error("failed to send maintenance response", zap.String("request.id", requestID), zap.Error(err))
		}
	}
}

// RateLimitMiddleware rejects requests with 429 once the limiter has no more tokens.
func (h *BaseHandler) RateLimitMiddleware(limiter *rate.Limiter) MiddlewareFunc {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if limiter.Allow() {
				next(w, r, ps)
				return
			}
			requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
			errResp := NewAPIError(requestID, http.StatusTooManyRequests, "too many requests. please retry later.", EmptyData)
			if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
				h.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
			}
		}
	}
}

// CORSMiddleware intercepts each incoming HTTP calls then apply cors headers on it.
func CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		setCORSHeaders(w.Header())
		next(w, r, ps)
	}
}

// setCORSHeaders forces the cross-origin headers expected by the browser UI.
func setCORSHeaders(header http.Header) {
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (h *BaseHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		recovery := func() {
			if err := recover(); err != nil {
				requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
				h.logger.Error("panic occurred", zap.String("request.id", requestID), zap.Any("error", err))
				errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to process the request.", EmptyData)
				if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
					h.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
				}
			}
		}
		defer recovery()
		next(w, r, ps)
	}
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(*m) == 0 {
		return h
	}
	lg := len(*m)
	handle := (*m)[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = (*m)[i](handle)
	}

	return handle
}
