package dualoutput

import (
	"context"

	"dualout/internal/display"
)

// SetLoggedIn records the account state. Signing out while dual output is on
// turns it off.
func (c *Coordinator) SetLoggedIn(ctx context.Context, loggedIn bool) {
	c.mu.Lock()
	c.loggedIn = loggedIn
	turnOff := !loggedIn && c.dualOutput
	c.mu.Unlock()
	if turnOff {
		_, _ = c.ToggleDualOutputMode(ctx, false)
	}
}

// LoggedIn reports the account state.
func (c *Coordinator) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// SetStudioMode enables or disables studio mode. It cannot be enabled while
// dual output is on.
func (c *Coordinator) SetStudioMode(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on && c.dualOutput {
		return ErrStudioMode
	}
	c.studioMode = on
	return nil
}

// StudioMode reports whether studio mode is on.
func (c *Coordinator) StudioMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.studioMode
}

// SetSelectiveRecording toggles selective recording. While it is on in dual
// output only the horizontal display is shown.
func (c *Coordinator) SetSelectiveRecording(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectiveRecording = on
}

// SelectiveRecording reports whether selective recording is on.
func (c *Coordinator) SelectiveRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectiveRecording
}

// SetDisplayVisible shows or hides one display. Displays toggle independently
// and the toggle never touches scene structure.
func (c *Coordinator) SetDisplayVisible(d display.Display, visible bool) {
	if !d.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible[d] = visible
}

// DisplayVisible reports whether d is shown. The vertical display is only
// shown in dual output, and never during selective recording.
func (c *Coordinator) DisplayVisible(d display.Display) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible[d] {
		return false
	}
	if d == display.Vertical {
		return c.dualOutput && !c.selectiveRecording
	}
	return d == display.Horizontal
}
