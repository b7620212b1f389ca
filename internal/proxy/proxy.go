// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package proxy answers tool requests from the local agent by relaying them
// to the orchestrator. When the orchestrator hands back vendor instructions,
// the proxy runs them locally, submits the outcomes and returns the
// orchestrator's final answer.
package proxy

import (
	"context"

	"go.uber.org/zap"

	"vendorbridge/cli/internal/bridge"
	"vendorbridge/cli/internal/bridge/model"
	"vendorbridge/cli/internal/logging"
)

// Executor runs vendor instructions in order, one outcome per instruction.
type Executor interface {
	Run(ctx context.Context, instructions []model.VendorInstruction) []model.Outcome
}

// Result is the single text block returned for a tool call.
type Result struct {
	Text    string
	IsError bool
}

// Proxy binds one resource to an orchestrator and a local executor.
type Proxy struct {
	bridge   bridge.Bridge
	exec     Executor
	resource model.Resource
	log      *zap.Logger
}

// New creates a proxy for resource.
func New(b bridge.Bridge, exec Executor, resource model.Resource, log *zap.Logger) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	if resource.Args == nil {
		resource.Args = map[string]any{}
	}
	return &Proxy{bridge: b, exec: exec, resource: resource, log: log}
}

// Resource returns the resource the proxy serves.
func (p *Proxy) Resource() model.Resource { return p.resource }

// ListTools returns the orchestrator's tools for the resource. A failed
// listing is logged and reported as no tools.
func (p *Proxy) ListTools(ctx context.Context) []model.ToolDescriptor {
	env := p.bridge.ListTools(ctx, p.resource)
	if !env.Success {
		p.log.Error("list tools failed", zap.String("error", logging.Mask(env.Error)))
		return []model.ToolDescriptor{}
	}
	if env.Tools == nil {
		return []model.ToolDescriptor{}
	}
	return env.Tools
}

// CallTool runs one tool call to completion.
//
// The orchestrator either answers directly or returns vendor instructions.
// Instructions run in order; their outcomes, failures included, are
// submitted back and the orchestrator's reply to that submission is the
// final answer.
func (p *Proxy) CallTool(ctx context.Context, name string, args map[string]any) Result {
	if args == nil {
		args = map[string]any{}
	}
	p.log.Info("tool call", zap.String("tool", name))

	env := p.bridge.CallTool(ctx, p.resource, name, args)
	if !env.Success {
		return Result{Text: "Error: " + env.Error, IsError: true}
	}
	if len(env.VendorInstructions) == 0 {
		return Result{Text: env.ResultText()}
	}

	p.log.Info("executing vendor instructions", zap.String("tool", name), zap.Int("count", len(env.VendorInstructions)))
	outcomes := p.exec.Run(ctx, env.VendorInstructions)

	final := p.bridge.SubmitVendorResults(ctx, p.resource, name, args, outcomes)
	if !final.Success {
		return Result{Text: "Error processing vendor results: " + final.Error, IsError: true}
	}
	return Result{Text: final.ResultText()}
}
