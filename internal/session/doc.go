// Package session guards collection edits with a data directory lock.
//
// A Session holds an exclusive flock on the data directory so two dualout
// processes never write the same database. Each edit loads one collection
// into an in-memory scene store, restores its node maps and dual output mode
// through the coordinator (which repairs the active scene), runs the caller's
// operation, then captures the result and saves it back.
package session
