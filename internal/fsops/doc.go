// Package fsops implements the local filesystem actions of release
// workflows: deleting generated directories and copying secret files in and
// out of a project.
//
// Every action is simulate-aware. In simulate mode nothing on disk changes;
// the lines that describe what would have happened carry a leading "-".
package fsops
