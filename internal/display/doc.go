// Package display names the two composited outputs a dual-output scene drives
// and the opaque context handle that binds a scene item to one of them.
//
// Horizontal is the landscape output every vanilla scene already renders to;
// Vertical is the portrait output that only exists in dual-output mode. Code
// that reads a tag from persisted data should go through Parse so unknown
// values are rejected instead of silently treated as horizontal.
package display
