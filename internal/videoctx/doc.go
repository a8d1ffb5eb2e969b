// Package videoctx tracks the rendering context established for each display.
//
// The compositing engine itself is out of reach of this module, so Memory is a
// bookkeeping stand-in: it hands out stable handles per display, remembers the
// base resolution each context was established with, and can be told a display
// is unavailable so callers exercise their context-missing paths.
package videoctx
