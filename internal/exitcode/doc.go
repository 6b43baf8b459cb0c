// Package exitcode maps raw process exit codes to a uniform success verdict.
//
// Tools disagree about what a non-zero exit means: robocopy reports a bit
// field where 1 means "files were copied", rsync uses 24 for files that
// vanished mid-transfer. A Classifier holds one Policy per command Kind so
// callers never embed tool-specific conditionals; registering a policy for a
// new kind leaves every other kind untouched.
package exitcode
