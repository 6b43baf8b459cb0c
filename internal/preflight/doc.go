// Package preflight provides readiness checks for the filesystem paths and
// services shipit depends on.
//
// The CLI "shipit doctor" command renders these results next to the tool
// availability from package deps. Each check is gated by configuration:
// an unset project folder or ntfy topic is skipped rather than failed.
package preflight
