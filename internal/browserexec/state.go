// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package browserexec

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/operation"
	"vendorbridge/cli/internal/session"
)

const (
	pollInterval = 100 * time.Millisecond
	dialogWindow = 5 * time.Minute
)

func waitFor(ctx context.Context, t Target, p operation.Params) (any, error) {
	selector := p.String("selector")
	if selector == "" {
		// a plain wait ends at its own timeout, which is not a failure
		d := Timeout(p)
		if err := sleep(ctx, d); err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
			return nil, failed("wait_for", err)
		}
		return done(fmt.Sprintf("Waited %dms", d.Milliseconds()), nil), nil
	}

	state := p.StringOr("state", "visible")
	var err error
	switch state {
	case "attached":
		_, err = t.Page.Element(selector)
	case "visible":
		err = waitVisible(t, selector)
	case "hidden", "detached":
		err = waitGone(ctx, t, selector, state == "detached")
	default:
		return nil, errors.Newf(errors.VendorExecution, "unknown wait state %q", state)
	}
	if err != nil {
		return nil, failed("wait_for", err)
	}
	return done(fmt.Sprintf("Element %s is %s", selector, state), nil), nil
}

func waitVisible(t Target, selector string) error {
	el, err := t.Page.Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

// waitGone polls until the selector matches nothing, or for hidden, nothing visible.
func waitGone(ctx context.Context, t Target, selector string, detached bool) error {
	for {
		has, el, err := t.Page.Has(selector)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		if !detached {
			visible, err := el.Visible()
			if err == nil && !visible {
				return nil
			}
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

// Expression turns a script into something Runtime.evaluate can run:
// function sources are invoked, plain expressions are left alone.
func Expression(script string) string {
	s := strings.TrimSpace(script)
	if strings.HasPrefix(s, "function") || strings.HasPrefix(s, "async ") ||
		(strings.HasPrefix(s, "(") && strings.Contains(s, "=>")) ||
		isArrowIdent(s) {
		return "(" + s + ")()"
	}
	return s
}

// isArrowIdent matches single-parameter arrows such as `x => x`.
func isArrowIdent(s string) bool {
	i := strings.Index(s, "=>")
	if i <= 0 {
		return false
	}
	head := strings.TrimSpace(s[:i])
	for _, r := range head {
		if !(r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return head != ""
}

func evaluate(_ context.Context, t Target, p operation.Params) (any, error) {
	script, err := p.RequireString("script")
	if err != nil {
		return nil, err
	}
	res, err := proto.RuntimeEvaluate{
		Expression:    Expression(script),
		ReturnByValue: true,
		AwaitPromise:  true,
	}.Call(t.Page)
	if err != nil {
		return nil, failed("evaluate", err)
	}
	if ex := res.ExceptionDetails; ex != nil {
		msg := ex.Text
		if ex.Exception != nil && ex.Exception.Description != "" {
			msg = ex.Exception.Description
		}
		return nil, errors.New(errors.VendorExecution, msg)
	}
	var value any
	if res.Result != nil {
		value = res.Result.Value.Val()
	}
	return map[string]any{"success": true, "result": value}, nil
}

// FilterConsole keeps error entries when onlyErrors is set.
func FilterConsole(entries []session.LogEntry, onlyErrors bool) []session.LogEntry {
	if !onlyErrors {
		return entries
	}
	out := make([]session.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type == "error" {
			out = append(out, e)
		}
	}
	return out
}

// FilterRequests keeps entries whose URL contains substr.
func FilterRequests(entries []session.LogEntry, substr string) []session.LogEntry {
	if substr == "" {
		return entries
	}
	out := make([]session.LogEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e.URL, substr) {
			out = append(out, e)
		}
	}
	return out
}

func consoleMessages(_ context.Context, t Target, p operation.Params) (any, error) {
	msgs := FilterConsole(t.Session.ConsoleLog(), p.Bool("onlyErrors", false))
	return map[string]any{"success": true, "messages": msgs, "count": len(msgs)}, nil
}

func networkRequests(_ context.Context, t Target, p operation.Params) (any, error) {
	reqs := FilterRequests(t.Session.NetworkLog(), p.String("filter"))
	return map[string]any{"success": true, "requests": reqs, "count": len(reqs)}, nil
}

func resize(_ context.Context, t Target, p operation.Params) (any, error) {
	width, height := p.Int("width", 0), p.Int("height", 0)
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.VendorExecution, "width and height must be positive")
	}
	err := t.Page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, failed("resize", err)
	}
	return done(fmt.Sprintf("Resized viewport to %dx%d", width, height), nil), nil
}

// PaperSize returns the page size in inches for a named paper format.
func PaperSize(format string) (width, height float64, ok bool) {
	switch strings.ToLower(format) {
	case "letter":
		return 8.5, 11, true
	case "legal":
		return 8.5, 14, true
	case "tabloid":
		return 11, 17, true
	case "ledger":
		return 17, 11, true
	case "a3":
		return 11.69, 16.54, true
	case "a4":
		return 8.27, 11.69, true
	case "a5":
		return 5.83, 8.27, true
	}
	return 0, 0, false
}

func pdfSave(_ context.Context, t Target, p operation.Params) (any, error) {
	path, err := p.RequireString("path")
	if err != nil {
		return nil, err
	}
	format := p.StringOr("format", "Letter")
	w, h, ok := PaperSize(format)
	if !ok {
		return nil, errors.Newf(errors.VendorExecution, "unknown paper format %q", format)
	}
	stream, err := t.Page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      gson.Num(w),
		PaperHeight:     gson.Num(h),
		PrintBackground: p.Bool("printBackground", false),
		Landscape:       p.Bool("landscape", false),
	})
	if err != nil {
		return nil, failed("pdf_save", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, failed("pdf_save", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, failed("pdf_save", err)
	}
	return done("PDF saved to "+path, map[string]any{"path": path}), nil
}

// handleDialog arms a one-shot handler for the next dialog on the page.
// The handler outlives the operation, so it is bound to the session page
// with its own window rather than the operation context.
func handleDialog(_ context.Context, t Target, p operation.Params) (any, error) {
	action := p.StringOr("action", "accept")
	if action != "accept" && action != "dismiss" {
		return nil, errors.Newf(errors.VendorExecution, "unknown dialog action %q", action)
	}
	req := &proto.PageHandleJavaScriptDialog{
		Accept:     action == "accept",
		PromptText: p.String("promptText"),
	}

	page := t.Session.Page.Timeout(dialogWindow)
	wait, handle := page.HandleDialog()
	go func() {
		defer page.CancelTimeout()
		wait()
		_ = handle(req)
	}()
	return done(fmt.Sprintf("Dialog handler set to %s", action), nil), nil
}
