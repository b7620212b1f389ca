// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the wire types exchanged with the remote orchestrator.
// The types are transport-agnostic; field tags match the orchestrator's JSON.
package model

import (
	"bytes"
	"encoding/json"
)

// Resource names the remote server a proxy instance fronts and its arguments.
type Resource struct {
	Name string         `json:"serverName"`
	Args map[string]any `json:"serverArgs"`
}

// ToolDescriptor describes one tool the orchestrator exposes.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// VendorInstruction is an operation the orchestrator delegates back to the
// proxy because only the proxy can reach the target resource.
type VendorInstruction struct {
	Type       string         `json:"type"`
	Operation  string         `json:"operation"`
	Parameters map[string]any `json:"parameters,omitempty"`
	// ConnectionIdentity is the connection string of a database resource.
	ConnectionIdentity string `json:"connectionString,omitempty"`
}

// Envelope is the uniform response shape of every orchestrator call.
// When Success is false only Error is meaningful.
type Envelope struct {
	Success            bool                `json:"success"`
	Error              string              `json:"error,omitempty"`
	Tools              []ToolDescriptor    `json:"tools,omitempty"`
	Result             json.RawMessage     `json:"result,omitempty"`
	VendorInstructions []VendorInstruction `json:"vendorInstructions,omitempty"`
}

// Failure builds an unsuccessful envelope.
func Failure(msg string) Envelope {
	if msg == "" {
		msg = "Unknown error"
	}
	return Envelope{Success: false, Error: msg}
}

// ResultText renders Result for a caller: strings verbatim, anything else as
// indented JSON. An absent result renders as the empty string.
func (e Envelope) ResultText() string {
	raw := bytes.TrimSpace(e.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Outcome is the result of one vendor instruction as submitted back to the
// orchestrator: either the operation's summary or an error object.
type Outcome any

// ErrorOutcome is the outcome recorded for a failed instruction.
type ErrorOutcome struct {
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// ListToolsRequest is the body of POST /tools/list.
type ListToolsRequest struct {
	Resource
}

// CallToolRequest is the body of POST /tools/call.
type CallToolRequest struct {
	Resource
	ToolName string         `json:"toolName"`
	ToolArgs map[string]any `json:"toolArgs"`
}

// VendorResultsRequest is the body of POST /vendor/results.
type VendorResultsRequest struct {
	CallToolRequest
	VendorResults []Outcome `json:"vendorResults"`
}
