// Package services defines shared utilities consumed by workflow stages and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, workflow names, and stage names for
//     logging and correlation.
//   - Structured error markers plus the Wrap helper that keep failure classes
//     (start failure, execution failure, local action failure, precondition
//     rejection) distinguishable after wrapping.
//
// Use these helpers when wiring new stages so failures surface the same way
// regardless of which tool or local action produced them.
package services
