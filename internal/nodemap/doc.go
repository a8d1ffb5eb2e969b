// Package nodemap holds the per-scene horizontal -> vertical node id maps that
// pair every dual-output node with its partner.
//
// All mutations are expressed as Events folded by Reduce, a pure function over
// an immutable State. Maps wraps the current State behind the query and
// mutation contract the coordinator uses; because every write goes through
// Reduce, the algorithms can be unit tested against plain State values without
// a live store.
//
// Invariants kept by construction: keys and values of one scene are disjoint,
// no value appears under two keys, and a scene with no entries has no map at
// all (it is vanilla).
package nodemap
