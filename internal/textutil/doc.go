// Package textutil provides text helpers shared by the request pipeline and
// the CLI.
//
// The primary use cases are:
//   - Estimating prompt token counts for attempt logs (tiktoken with a
//     character-class heuristic when encodings are unavailable)
//   - Truncating text previews on rune boundaries
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil
