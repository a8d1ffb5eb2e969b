// Command dualout edits scene collections for dual output streaming.
//
// Collections are imported from JSON or YAML documents into a SQLite database
// under the configured data directory. Every mutating command takes the data
// directory lock, restores the collection (repairing the active scene when
// dual output is on), applies the change, and saves the collection again.
package main
