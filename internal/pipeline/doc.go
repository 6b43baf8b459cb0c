// Package pipeline drives an ordered list of stages to completion.
//
// A Pipeline is data: a slice of Steps plus a completion callback. Its driver
// is a small state machine (Idle, Running(i), Succeeded, Failed) whose
// transitions happen on the controlling loop. Stage completions arrive on
// worker goroutines and are posted back to the loop before the driver
// advances, so stages never overlap and driver state has a single owner.
//
// After the first failing stage only steps marked AlwaysRun execute. Nothing
// is rolled back; compensating work is expressed as an AlwaysRun step.
package pipeline
