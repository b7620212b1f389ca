// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package browserexec

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/operation"
)

func click(_ context.Context, t Target, p operation.Params) (any, error) {
	el, selector, err := element(t, p)
	if err != nil {
		return nil, err
	}
	clicks := p.Int("clickCount", 1)
	if err := el.Click(mouseButton(p.String("button")), clicks); err != nil {
		return nil, failed("click", err)
	}
	return done("Clicked "+selector, nil), nil
}

func mouseButton(name string) proto.InputMouseButton {
	switch name {
	case "right":
		return proto.InputMouseButtonRight
	case "middle":
		return proto.InputMouseButtonMiddle
	default:
		return proto.InputMouseButtonLeft
	}
}

// setValue replaces the current value of an input-like element.
func setValue(el *rod.Element, value string) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	if value == "" {
		_, err := el.Eval(`function() {
			this.value = '';
			this.dispatchEvent(new Event('input', { bubbles: true }));
			this.dispatchEvent(new Event('change', { bubbles: true }));
		}`)
		return err
	}
	return el.Input(value)
}

func fill(_ context.Context, t Target, p operation.Params) (any, error) {
	el, selector, err := element(t, p)
	if err != nil {
		return nil, err
	}
	if err := setValue(el, p.String("value")); err != nil {
		return nil, failed("fill", err)
	}
	return done("Filled "+selector, nil), nil
}

func typeText(ctx context.Context, t Target, p operation.Params) (any, error) {
	el, selector, err := element(t, p)
	if err != nil {
		return nil, err
	}
	text, err := p.RequireString("text")
	if err != nil {
		return nil, err
	}
	delay := time.Duration(p.Int("delay", int(defaultTypeDelay/time.Millisecond))) * time.Millisecond

	if err := el.Focus(); err != nil {
		return nil, failed("type", err)
	}
	for i, r := range text {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, failed("type", err)
			}
		}
		if err := t.Page.InsertText(string(r)); err != nil {
			return nil, failed("type", err)
		}
	}
	return done("Typed text into "+selector, nil), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pressKey(_ context.Context, t Target, p operation.Params) (any, error) {
	name, err := p.RequireString("key")
	if err != nil {
		return nil, err
	}
	mods, key, err := ParseCombo(name)
	if err != nil {
		return nil, err
	}
	if selector := p.String("selector"); selector != "" {
		el, err := t.Page.Element(selector)
		if err != nil {
			return nil, failed(fmt.Sprintf("element %s", selector), err)
		}
		if err := el.Focus(); err != nil {
			return nil, failed("press_key", err)
		}
	}
	if err := t.Page.KeyActions().Press(mods...).Type(key).Do(); err != nil {
		return nil, failed("press_key", err)
	}
	return done("Pressed "+name, nil), nil
}

func selectOption(_ context.Context, t Target, p operation.Params) (any, error) {
	el, selector, err := element(t, p)
	if err != nil {
		return nil, err
	}
	values := p.Strings("value")
	if len(values) == 0 {
		return nil, errors.New(errors.VendorExecution, `missing required parameter "value"`)
	}
	byValue := make([]string, len(values))
	for i, v := range values {
		byValue[i] = fmt.Sprintf("option[value=%q]", v)
	}
	if err := el.Select(byValue, true, rod.SelectorTypeCSSSector); err != nil {
		// fall back to matching the visible label
		if err := el.Select(values, true, rod.SelectorTypeText); err != nil {
			return nil, failed("select_option", err)
		}
	}
	return done("Selected option in "+selector, map[string]any{"values": values}), nil
}

func hover(_ context.Context, t Target, p operation.Params) (any, error) {
	el, selector, err := element(t, p)
	if err != nil {
		return nil, err
	}
	if err := el.Hover(); err != nil {
		return nil, failed("hover", err)
	}
	return done("Hovered over "+selector, nil), nil
}

func center(el *rod.Element) (proto.Point, error) {
	if err := el.ScrollIntoView(); err != nil {
		return proto.Point{}, err
	}
	shape, err := el.Shape()
	if err != nil {
		return proto.Point{}, err
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return proto.Point{}, fmt.Errorf("element has no visible area")
	}
	return *pt, nil
}

func drag(_ context.Context, t Target, p operation.Params) (any, error) {
	source, err := p.RequireString("sourceSelector")
	if err != nil {
		return nil, err
	}
	target, err := p.RequireString("targetSelector")
	if err != nil {
		return nil, err
	}
	from, err := t.Page.Element(source)
	if err != nil {
		return nil, failed(fmt.Sprintf("element %s", source), err)
	}
	to, err := t.Page.Element(target)
	if err != nil {
		return nil, failed(fmt.Sprintf("element %s", target), err)
	}
	start, err := center(from)
	if err != nil {
		return nil, failed("drag", err)
	}
	end, err := center(to)
	if err != nil {
		return nil, failed("drag", err)
	}

	mouse := t.Page.Mouse
	if err := mouse.MoveTo(start); err != nil {
		return nil, failed("drag", err)
	}
	if err := mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, failed("drag", err)
	}
	if err := mouse.MoveLinear(end, 10); err != nil {
		return nil, failed("drag", err)
	}
	if err := mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, failed("drag", err)
	}
	return done(fmt.Sprintf("Dragged %s to %s", source, target), nil), nil
}

type fieldResult struct {
	Selector string `json:"selector"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

func fillForm(_ context.Context, t Target, p operation.Params) (any, error) {
	fields := p.Slice("fields")
	results := make([]fieldResult, 0, len(fields))
	for _, raw := range fields {
		f := operation.Params(asMap(raw))
		res := fieldResult{Selector: f.String("selector")}
		if err := fillField(t, f); err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	return done(fmt.Sprintf("Filled %d fields", len(fields)), map[string]any{"results": results}), nil
}

func fillField(t Target, f operation.Params) error {
	selector, err := f.RequireString("selector")
	if err != nil {
		return err
	}
	el, err := t.Page.Element(selector)
	if err != nil {
		return err
	}
	return setValue(el, fmt.Sprint(valueOr(f["value"], "")))
}

func fileUpload(_ context.Context, t Target, p operation.Params) (any, error) {
	el, selector, err := element(t, p)
	if err != nil {
		return nil, err
	}
	files := p.Strings("files")
	if len(files) == 0 {
		return nil, errors.New(errors.VendorExecution, `missing required parameter "files"`)
	}
	if err := el.SetFiles(files); err != nil {
		return nil, failed("file_upload", err)
	}
	return done(fmt.Sprintf("Uploaded %d files to %s", len(files), selector), nil), nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func valueOr(v, def any) any {
	if v == nil {
		return def
	}
	return v
}
