package dualoutput

import (
	"errors"
	"fmt"
	"strings"

	"dualout/internal/videoctx"
)

var (
	// ErrLookup marks a referenced node, scene, or partner that does not exist.
	ErrLookup = errors.New("lookup failure")
	// ErrMapInconsistency marks a node map that disagrees with the node store.
	ErrMapInconsistency = errors.New("node map inconsistency")
	// ErrContextUnavailable marks a node left without a rendering context.
	ErrContextUnavailable = videoctx.ErrContextUnavailable
	// ErrLoginRequired is returned when dual output is enabled without an account.
	ErrLoginRequired = errors.New("dual output requires a signed-in user")
	// ErrStudioMode is returned when dual output and studio mode would both be on.
	ErrStudioMode = errors.New("dual output is unavailable in studio mode")
	// ErrStoreUnavailable marks a failure to read the node store itself.
	ErrStoreUnavailable = errors.New("node store unavailable")
)

// wrap builds "marker: operation: message: cause" while keeping both the
// marker and the cause visible to errors.Is.
func wrap(marker error, operation, message string, err error) error {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "dual output failure"
	}
	if err != nil {
		if errors.Is(err, marker) {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
