package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// ProxyErrorResponse is the only body the proxy produces by itself.
type ProxyErrorResponse struct {
	Error string `json:"error"`
}

// Proxy relays browser API calls to the book store.
type Proxy struct {
	logger     *zap.Logger
	backendURL string
	client     *http.Client
}

// NewProxy provides a proxy towards backendURL. A zero timeout keeps
// the transport default.
func NewProxy(logger *zap.Logger, backendURL string, timeout time.Duration) *Proxy {
	return &Proxy{
		logger:     logger,
		backendURL: backendURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Forward sends the inbound request to the backend with the same method,
// sub-path, query and body, then relays the upstream status and body.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	target := p.backendURL + ps.ByName("path")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	status, header, body, err := p.roundTrip(r.Context(), r, target)
	if err != nil {
		p.logger.Error("proxy: failed to forward request",
			zap.String("request.id", requestID),
			zap.String("request.method", r.Method),
			zap.String("proxy.target", target),
			zap.Error(err),
		)
		p.writeFailure(w, requestID)
		return
	}

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	setCORSHeaders(w.Header())
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		p.logger.Error("proxy: failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// roundTrip performs the upstream call and fully reads its response.
func (p *Proxy) roundTrip(ctx context.Context, r *http.Request, target string) (int, http.Header, []byte, error) {
	var reqBody io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("read inbound body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build upstream request: %w", err)
	}
	out.Header.Set("Content-Type", "application/json")
	for k, vs := range r.Header {
		out.Header[k] = vs
	}
	// let the transport negotiate compression so the relayed body is plain.
	out.Header.Del("Accept-Encoding")

	resp, err := p.client.Do(out)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("upstream call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read upstream body: %w", err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

func (p *Proxy) writeFailure(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	setCORSHeaders(w.Header())
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(ProxyErrorResponse{Error: "Internal server error"}); err != nil {
		p.logger.Error("proxy: failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}
