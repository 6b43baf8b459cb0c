// Package journal records completed workflow runs in SQLite.
//
// The journal is an audit log for `shipit history`: one row per finished
// run with its verdict and the first failing stage. Nothing is ever resumed
// from it; a run that is interrupted by a crash simply has no row. Schema
// changes bump the version in schema.go and users delete the database to
// adopt the new schema.
package journal
