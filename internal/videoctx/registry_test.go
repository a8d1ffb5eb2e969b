package videoctx_test

import (
	"errors"
	"testing"

	"dualout/internal/display"
	"dualout/internal/videoctx"
)

func TestEstablishIsStable(t *testing.T) {
	reg := videoctx.NewMemory(map[display.Display]videoctx.Resolution{
		display.Vertical: {Width: 720, Height: 1280},
	})
	first, err := reg.Establish(display.Vertical)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	second, err := reg.Establish(display.Vertical)
	if err != nil {
		t.Fatalf("Establish again: %v", err)
	}
	if first != second {
		t.Fatalf("expected same handle, got %v and %v", first, second)
	}
	if got, ok := reg.Context(display.Vertical); !ok || got != first {
		t.Fatalf("Context = %v,%v", got, ok)
	}
	if res, ok := reg.Resolution(display.Vertical); !ok || res.Height != 1280 {
		t.Fatalf("unexpected resolution %v", res)
	}
	if !reg.Destroy(display.Vertical) {
		t.Fatal("expected destroy to report existing context")
	}
	if reg.Destroy(display.Vertical) {
		t.Fatal("second destroy should report nothing")
	}
}

func TestUnavailableDisplay(t *testing.T) {
	reg := videoctx.NewMemory(nil)
	if _, err := reg.Establish(display.Vertical); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	reg.SetAvailable(display.Vertical, false)
	if _, ok := reg.Context(display.Vertical); ok {
		t.Fatal("expected context to be dropped")
	}
	if _, err := reg.Establish(display.Vertical); !errors.Is(err, videoctx.ErrContextUnavailable) {
		t.Fatalf("expected ErrContextUnavailable, got %v", err)
	}
	reg.SetAvailable(display.Vertical, true)
	if _, err := reg.Establish(display.Vertical); err != nil {
		t.Fatalf("Establish after restore: %v", err)
	}
}
