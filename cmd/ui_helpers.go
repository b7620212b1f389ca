// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"vendorbridge/cli/internal/terminal"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startSpinner shows an animated status line until the returned function is
// called. Nothing is drawn when stdin is not a terminal.
func startSpinner(text string) func() {
	if !terminal.IsInteractive() {
		return func() {}
	}
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for i := 0; ; i++ {
			area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			select {
			case <-t.C:
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}

// maskKey keeps the first four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "********"
}
