package dualoutput

import "errors"

// Result summarizes the mutations performed by a bulk operation.
type Result struct {
	Created    int // partner nodes created
	Confirmed  int // pairs found consistent
	Tagged     int // display tags written
	Assigned   int // context assignments written
	Reparented int // vertical nodes moved to mirror their horizontal parent
	Pruned     int // map entries removed
	Removed    int // nodes removed
	Failures   []error
}

// Err joins all per-node failures, or returns nil.
func (r Result) Err() error {
	return errors.Join(r.Failures...)
}

// Changed reports whether the operation mutated the store or the maps.
func (r Result) Changed() bool {
	return r.Created+r.Tagged+r.Assigned+r.Reparented+r.Pruned+r.Removed > 0
}

func (r *Result) fail(err error) {
	if err != nil {
		r.Failures = append(r.Failures, err)
	}
}

// Add accumulates other into r.
func (r *Result) Add(other Result) {
	r.Created += other.Created
	r.Confirmed += other.Confirmed
	r.Tagged += other.Tagged
	r.Assigned += other.Assigned
	r.Reparented += other.Reparented
	r.Pruned += other.Pruned
	r.Removed += other.Removed
	r.Failures = append(r.Failures, other.Failures...)
}

// Progress is reported once per node handled by a bulk operation. Index runs
// from 1 to Total.
type Progress struct {
	SceneID string
	NodeID  string
	Index   int
	Total   int
}
