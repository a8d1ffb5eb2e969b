// Package scenes models scene trees and the node store the dual-output
// coordinator mutates.
//
// A scene owns a flat, linear node order that doubles as z-order. Folders group
// nodes through parent ids and the flat order is always a pre-order walk of
// the tree: every folder precedes its descendants and a folder's subtree is a
// contiguous run. Every mutation in MemoryStore preserves that shape, and
// relative placement (PlaceAfter/PlaceBefore/SetParent) moves whole subtrees.
//
// Store is the narrow contract consumers depend on; MemoryStore is the
// in-process implementation used by the CLI and tests.
package scenes
