// Package dualoutput keeps a scene's horizontal and vertical compositions in
// step.
//
// The Coordinator owns the per-scene node maps and drives the node store and
// video context registry it is constructed with. It creates the vertical twin
// of every horizontal node (and the reverse during repair), keeps the flat
// order "all horizontal, then all vertical" after bulk creation, mirrors folder
// nesting across displays, and repairs drift left behind by edits made outside
// the coordinator. Lifecycle events (mode toggle, scene switch, collection
// load, node add and remove) are methods on the Coordinator.
//
// Bulk operations never stop on a single node: per-node failures are logged,
// collected in Result.Failures and retried by the next repair pass. Only a
// failure to read the node store itself is returned as an error.
package dualoutput
