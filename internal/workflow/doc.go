// Package workflow turns operator requests into pipelines and drives them.
//
// Each workflow (status, pull, update, push, build, postprocess, clean,
// secrets) is a Definition whose Plan function lays out the ordered stages
// for the current project. The Controller owns the controlling loop, the
// single-flight guard, the stall watchdog and the output sink. It admits one
// workflow at a time, runs the planned pipeline, and on completion releases
// the guard, records the run in the journal, and sends a notification.
//
// Add a workflow by appending a Definition to the catalog; planning happens
// during admission so a workflow that cannot run for the current project is
// rejected before any stage starts.
package workflow
