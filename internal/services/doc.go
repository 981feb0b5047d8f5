// Package services defines shared utilities consumed by the evaluation and
// summary drivers and the generation API client.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, task names, and request
//     identifiers for logging and the request journal.
//   - Structured error markers plus the Wrap helper so callers can tell
//     persistence failures from generation failures without string matching.
package services
