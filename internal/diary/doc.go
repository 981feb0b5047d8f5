// Package diary reads dated markdown diary files into structured records.
//
// A diary lives at <dir>/YYYY-MM-DD.md. Its headings are matched against
// configurable keyword variants (todo, log, thoughts, attachments, feedback);
// list items under the first three become record entries, the attachments
// block is kept opaque and never formatted for prompts, and the feedback
// section holds text previously produced by the assistant. Unrecognized
// sections are ignored.
//
// Files whose stem ends in "x" (2024-05-06x.md) are drafts and never read.
// Records are snapshots: each Read parses the file again.
package diary
