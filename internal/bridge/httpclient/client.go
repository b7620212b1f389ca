// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httpclient implements the orchestrator bridge over HTTP with JSON bodies.
// Every call is bounded by a fixed timeout and every failure, whether the
// request never left, timed out or came back non-2xx, is folded into an
// unsuccessful envelope instead of being returned as an error.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/bridge/model"
	vberrors "vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/logging"
	"vendorbridge/cli/internal/tracing"
)

// DefaultTimeout bounds every orchestrator request.
const DefaultTimeout = 30 * time.Second

const (
	pathListTools     = "/tools/list"
	pathCallTool      = "/tools/call"
	pathVendorResults = "/vendor/results"
	pathHealth        = "/health"
)

// Client talks to the remote orchestrator.
type Client struct {
	// baseURL is the orchestrator root (e.g., "http://localhost:3001")
	baseURL string
	// apiKey is sent as a bearer token when non-empty
	apiKey string
	client *http.Client
	log    *zap.Logger
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option { return func(c *Client) { c.tracer = t } }

// New creates a client for the orchestrator at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
		tracer:  tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTools calls POST /tools/list.
func (c *Client) ListTools(ctx context.Context, res model.Resource) model.Envelope {
	if res.Args == nil {
		res.Args = map[string]any{}
	}
	return c.post(ctx, pathListTools, model.ListToolsRequest{Resource: res})
}

// CallTool calls POST /tools/call.
func (c *Client) CallTool(ctx context.Context, res model.Resource, toolName string, toolArgs map[string]any) model.Envelope {
	return c.post(ctx, pathCallTool, callRequest(res, toolName, toolArgs))
}

// SubmitVendorResults calls POST /vendor/results with the ordered outcomes.
func (c *Client) SubmitVendorResults(ctx context.Context, res model.Resource, toolName string, toolArgs map[string]any, results []model.Outcome) model.Envelope {
	if results == nil {
		results = []model.Outcome{}
	}
	return c.post(ctx, pathVendorResults, model.VendorResultsRequest{
		CallToolRequest: callRequest(res, toolName, toolArgs),
		VendorResults:   results,
	})
}

// HealthCheck reports whether GET /health answered 200.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

// Ping calls GET /health and returns the transport failure or non-200
// status as an error.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "orchestrator GET "+pathHealth)
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodGet, pathHealth, nil)
	if err != nil {
		c.log.Warn("health check failed", zap.Error(err))
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("health check failed", zap.String("error", logging.Mask(err.Error())))
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()
	c.log.Debug(fmt.Sprintf("← %d %s", resp.StatusCode, pathHealth))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return vberrors.Newf(vberrors.Transport, "HTTP %d: %s", resp.StatusCode, statusText(resp))
	}
	return nil
}

func callRequest(res model.Resource, toolName string, toolArgs map[string]any) model.CallToolRequest {
	if toolArgs == nil {
		toolArgs = map[string]any{}
	}
	if res.Args == nil {
		res.Args = map[string]any{}
	}
	return model.CallToolRequest{Resource: res, ToolName: toolName, ToolArgs: toolArgs}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// post sends body as JSON and decodes the envelope. It never returns a
// transport failure to the caller; those become Failure envelopes.
func (c *Client) post(ctx context.Context, path string, body any) model.Envelope {
	ctx, span := c.tracer.Start(ctx, "orchestrator POST "+path)
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return c.fail(span, path, vberrors.Wrap(vberrors.Transport, "encode request", err).Error())
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return c.fail(span, path, err.Error())
	}
	c.log.Info(fmt.Sprintf("→ POST %s", path), zap.String("request_id", req.Header.Get("X-Request-ID")))

	resp, err := c.client.Do(req)
	if err != nil {
		return c.fail(span, path, err.Error())
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := statusText(resp)
		c.log.Warn(fmt.Sprintf("← %d %s: %s", resp.StatusCode, path, text))
		return c.fail(span, path, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text))
	}
	c.log.Info(fmt.Sprintf("← %d %s", resp.StatusCode, path))

	var env model.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return c.fail(span, path, fmt.Sprintf("decode response: %v", err))
	}
	if !env.Success && env.Error == "" {
		env.Error = "Unknown error"
	}
	return env
}

func (c *Client) fail(span trace.Span, path, msg string) model.Envelope {
	span.SetStatus(codes.Error, msg)
	c.log.Error("orchestrator request failed",
		zap.String("path", path),
		zap.String("kind", string(vberrors.Transport)),
		zap.String("error", logging.Mask(msg)))
	return model.Failure(msg)
}

// statusText extracts the reason phrase from resp.Status ("500 Internal Server Error").
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
