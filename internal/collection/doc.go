// Package collection persists scene collections.
//
// A collection is a set of scenes, their node trees, the dual output flag, and
// the per-scene node maps that pair horizontal nodes with vertical ones. It has
// two forms: a portable Document that encodes to JSON or YAML for import and
// export, and rows in a SQLite database owned by Store. Hydrate turns a
// Document into an in-memory scene store plus node map snapshot for the
// coordinator, and Capture turns the edited state back into a Document.
//
// A document without a node map section describes a vanilla collection. Node
// ids that repeat within a document are dropped on load, keeping the first.
package collection
