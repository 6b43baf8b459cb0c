// Package notifications delivers workflow outcomes via ntfy.
//
// The implementation publishes to the ntfy topic configured in config.toml
// and degrades to a no-op when notifications are disabled. Only run-level
// events are published: one message when a workflow finishes and one when
// it fails. Workflow code depends only on the Service interface.
package notifications
