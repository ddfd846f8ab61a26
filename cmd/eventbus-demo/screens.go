// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/ManuGH/eventbus/internal/eventbus"
)

// User is the demo's structured message.
type User struct {
	Name string
}

// display stands in for the screens' text views. Handlers on different
// executors write to it concurrently.
type display struct {
	mu    sync.Mutex
	out   io.Writer
	lines []string
}

func newDisplay(out io.Writer) *display {
	return &display{out: out}
}

func (d *display) Show(screen, text string) {
	line := fmt.Sprintf("[%s] %s", screen, text)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
	_, _ = fmt.Fprintln(d.out, line)
}

func (d *display) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// mainScreen is discovered by method scan. Text is shown on the posting
// goroutine, users are rendered on the main loop.
type mainScreen struct {
	display *display
}

func (s *mainScreen) OnText(msg string) {
	s.display.Show("main", "text: "+msg)
}

func (s *mainScreen) OnUser(u User) {
	s.display.Show("main", "user: "+u.Name)
}

func (s *mainScreen) ThreadModes() map[string]eventbus.ThreadMode {
	return map[string]eventbus.ThreadMode{"OnUser": eventbus.Main}
}

// secondScreen lists its handlers explicitly and processes users in the
// background.
type secondScreen struct {
	display *display
}

func (s *secondScreen) EventHandlers() []eventbus.Handler {
	return []eventbus.Handler{
		eventbus.On(s.onUser, eventbus.Mode(eventbus.Background), eventbus.Named("second.user")),
	}
}

func (s *secondScreen) onUser(u User) {
	s.display.Show("second", "user: "+u.Name)
}
