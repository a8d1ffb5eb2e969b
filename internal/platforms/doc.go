// Package platforms tracks which display each streaming destination receives
// and validates a go-live request against dual output mode.
//
// Settings are seeded from the [platforms] table of the configuration and can
// be updated at runtime. With dual output on, a broadcast is only allowed when
// at least one selected destination takes the horizontal display and at least
// one takes the vertical display.
package platforms
