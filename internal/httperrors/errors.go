// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns orchestrator network failures into guidance for
// the person at the terminal. It is used by the interactive commands only;
// the MCP stdio mode never prints to stdout.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the broad cause of a network failure.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	Refused
	TLS
	Server
	Unauthorized
)

func (c Category) String() string {
	switch c {
	case Timeout:
		return "timeout"
	case DNS:
		return "dns"
	case Refused:
		return "refused"
	case TLS:
		return "tls"
	case Server:
		return "server"
	case Unauthorized:
		return "unauthorized"
	}
	return "generic"
}

// Classify inspects err and its text. Typed net errors are checked before
// falling back to substrings of the message.
func Classify(err error) Category {
	if err == nil {
		return Generic
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return DNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return Refused
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies a failure known only by its text, such as the
// error of an unsuccessful orchestrator envelope.
func ClassifyMessage(msg string) Category {
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, "timeout", "deadline exceeded"):
		return Timeout
	case containsAny(lower, "no such host", "server misbehaving"):
		return DNS
	case strings.Contains(lower, "connection refused"):
		return Refused
	case containsAny(lower, "tls", "x509", "certificate", "handshake"):
		return TLS
	case containsAny(lower, "http 401", "http 403", "unauthorized", "forbidden"):
		return Unauthorized
	case containsAny(lower, "http 500", "http 502", "http 503", "http 504",
		"internal server error", "bad gateway", "service unavailable"):
		return Server
	}
	return Generic
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Hints returns the headline and troubleshooting lines for a category.
// action describes what was being attempted ("checking orchestrator health").
func Hints(c Category, action, host string) (string, []string) {
	switch c {
	case Timeout:
		return fmt.Sprintf("⏱️  Timed out while %s", action), []string{
			"The orchestrator at " + host + " took too long to respond.",
			"Check your network, or raise timeouts.request_ms in config.json.",
		}
	case DNS:
		return fmt.Sprintf("🌐 Cannot resolve %s while %s", host, action), []string{
			"Check --cloud-url or VENDORBRIDGE_CLOUD_URL for typos.",
			"Make sure DNS works from this machine.",
		}
	case Refused:
		return fmt.Sprintf("🚫 Connection refused by %s while %s", host, action), []string{
			"Is the orchestrator running and listening on that port?",
			"For local development the default is http://localhost:3001.",
		}
	case TLS:
		return fmt.Sprintf("🔒 Secure connection to %s failed while %s", host, action), []string{
			"The certificate could not be verified, or a proxy intercepted HTTPS.",
			"Check the system clock and any corporate proxy settings.",
		}
	case Unauthorized:
		return fmt.Sprintf("🔑 %s rejected the API key while %s", host, action), []string{
			"Run 'vendorbridge login' to store a valid key,",
			"or pass one with --api-key / VENDORBRIDGE_API_KEY.",
		}
	case Server:
		return fmt.Sprintf("⚠️  The orchestrator failed while %s", action), []string{
			"The problem is on the orchestrator side, not in your setup.",
			"Try again in a few minutes.",
		}
	}
	return fmt.Sprintf("❌ Cannot reach the orchestrator at %s while %s", host, action), []string{
		"Check your network connection and the configured cloud URL.",
	}
}

// Present prints guidance for err and returns it wrapped for the caller.
func Present(err error, action, baseURL string) error {
	if err == nil {
		return nil
	}
	show(Classify(err), err.Error(), action, baseURL)
	return fmt.Errorf("network error: %w", err)
}

// PresentMessage is Present for failures known only by their text.
func PresentMessage(msg, action, baseURL string) error {
	show(ClassifyMessage(msg), msg, action, baseURL)
	return fmt.Errorf("%s: %s", action, msg)
}

func show(c Category, details, action, baseURL string) {
	headline, lines := Hints(c, action, Host(baseURL))
	pterm.Println(headline)
	pterm.Println()
	for _, l := range lines {
		pterm.Println("  • " + l)
	}
	pterm.Println()
	if c == Generic && details != "" {
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", details)
	}
}

// Host extracts the host of a URL for messages, or "the server".
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "the server"
	}
	return u.Host
}
