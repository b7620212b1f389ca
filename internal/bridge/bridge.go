// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge defines the outbound side of the proxy: the client that
// forwards tool listings, tool calls and vendor results to the remote
// orchestrator. Implementations never surface transport failures as Go
// errors; every call yields an envelope.
package bridge

import (
	"context"

	"vendorbridge/cli/internal/bridge/httpclient"
	"vendorbridge/cli/internal/bridge/model"
)

// Bridge represents a connection to the remote orchestrator.
type Bridge interface {
	// ListTools fetches the tool catalogue of a resource.
	ListTools(ctx context.Context, res model.Resource) model.Envelope
	// CallTool asks the orchestrator to run a tool. The envelope may carry
	// vendor instructions for the proxy to execute locally.
	CallTool(ctx context.Context, res model.Resource, toolName string, toolArgs map[string]any) model.Envelope
	// SubmitVendorResults returns instruction outcomes, in order, for final processing.
	SubmitVendorResults(ctx context.Context, res model.Resource, toolName string, toolArgs map[string]any, results []model.Outcome) model.Envelope
	// HealthCheck reports whether the orchestrator answers GET /health with 200.
	HealthCheck(ctx context.Context) bool
}

// New creates a new bridge instance.
// It returns an HTTP client bridge.
func New(baseURL string, opts ...httpclient.Option) Bridge {
	return httpclient.New(baseURL, opts...)
}
