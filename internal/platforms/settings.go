package platforms

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"dualout/internal/config"
	"dualout/internal/display"
)

// CoverageMessage is shown to the user when a dual output broadcast is
// rejected for missing a display.
const CoverageMessage = "To use Dual Output you must stream to at least one horizontal and one vertical platform."

var (
	// ErrUnknownDestination indicates a destination with no display assignment.
	ErrUnknownDestination = errors.New("unknown destination")
	// ErrDisplayCoverage indicates a dual output broadcast that would leave one
	// display without a destination.
	ErrDisplayCoverage = errors.New("dual output needs a horizontal and a vertical destination")
)

// Setting is the display assignment of one destination.
type Setting struct {
	Destination string
	Display     display.Display
}

// Settings maps destinations to displays. It is safe for concurrent use.
type Settings struct {
	mu       sync.RWMutex
	displays map[string]display.Display
}

// New returns settings seeded from assignments. Names are matched case
// insensitively and empty displays default to horizontal.
func New(assignments map[string]display.Display) (*Settings, error) {
	s := &Settings{displays: make(map[string]display.Display, len(assignments))}
	for name, d := range assignments {
		if err := s.Update(name, d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromConfig builds settings from the configured [platforms] table.
func FromConfig(cfg *config.Config) (*Settings, error) {
	if cfg == nil {
		return New(nil)
	}
	assignments, err := cfg.PlatformDisplays()
	if err != nil {
		return nil, err
	}
	return New(assignments)
}

// Update assigns d to destination, adding the destination when it is new.
func (s *Settings) Update(destination string, d display.Display) error {
	name := normalizeName(destination)
	if name == "" {
		return fmt.Errorf("%w: empty destination name", ErrUnknownDestination)
	}
	if d == "" {
		d = display.Horizontal
	}
	if !d.Valid() {
		return fmt.Errorf("destination %s: invalid display %q", name, d)
	}
	s.mu.Lock()
	s.displays[name] = d
	s.mu.Unlock()
	return nil
}

// Display returns the display assigned to destination.
func (s *Settings) Display(destination string) (display.Display, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.displays[normalizeName(destination)]
	return d, ok
}

// List returns every setting sorted by destination name.
func (s *Settings) List() []Setting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Setting, 0, len(s.displays))
	for name, d := range s.displays {
		out = append(out, Setting{Destination: name, Display: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

// Coverage groups the selected destinations by display.
func (s *Settings) Coverage(destinations []string) (map[display.Display][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[display.Display][]string{}
	var unknown []string
	for _, dest := range destinations {
		name := normalizeName(dest)
		d, ok := s.displays[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if !slices.Contains(out[d], name) {
			out[d] = append(out[d], name)
		}
	}
	if len(unknown) > 0 {
		return out, fmt.Errorf("%w: %s", ErrUnknownDestination, strings.Join(unknown, ", "))
	}
	return out, nil
}

// ValidateGoLive checks a broadcast to destinations. Single output accepts
// any non-empty set of known destinations; dual output additionally needs
// both displays covered.
func (s *Settings) ValidateGoLive(dualOutput bool, destinations []string) error {
	if len(destinations) == 0 {
		return fmt.Errorf("%w: no destinations selected", ErrUnknownDestination)
	}
	coverage, err := s.Coverage(destinations)
	if err != nil {
		return err
	}
	if !dualOutput {
		return nil
	}
	if len(coverage[display.Horizontal]) == 0 || len(coverage[display.Vertical]) == 0 {
		return ErrDisplayCoverage
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
