// Package input polls SDL2 events for the demo host and reduces them
// to the handful of signals the overlay loop cares about.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Frame holds the input state gathered for one iteration of the loop.
type Frame struct {
	Quit    bool
	Resized bool
	Width   int
	Height  int

	pressed []sdl.Scancode
}

// Pressed reports whether the key went down this frame.
func (f *Frame) Pressed(code sdl.Scancode) bool {
	for _, p := range f.pressed {
		if p == code {
			return true
		}
	}
	return false
}

// Poller drains the SDL event queue once per frame.
type Poller struct {
	frame Frame
}

// New creates a poller. Must be used on the thread that owns the window.
func New() *Poller {
	return &Poller{
		frame: Frame{pressed: make([]sdl.Scancode, 0, 8)},
	}
}

// Poll consumes all pending SDL events and returns the frame state.
// The returned Frame is only valid until the next Poll call.
func (p *Poller) Poll() *Frame {
	f := &p.frame
	f.Quit = false
	f.Resized = false
	f.pressed = f.pressed[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			f.Quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				f.Resized = true
				f.Width = int(e.Data1)
				f.Height = int(e.Data2)
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				f.pressed = append(f.pressed, e.Keysym.Scancode)
			}
		}
	}

	return f
}
