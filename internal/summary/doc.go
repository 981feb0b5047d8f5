// Package summary schedules weekly summaries.
//
// RunPending walks every complete ISO week inside the configured horizon,
// oldest first, and generates a summary artifact for each week that has
// diaries but no artifact yet. The artifact file is the only record of
// completion, so a rerun without new data makes no API calls. One week
// failing never stops the others.
package summary
