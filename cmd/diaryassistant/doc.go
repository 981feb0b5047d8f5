// Command diaryassistant evaluates today's diary and writes the weekly
// summaries that are still missing.
//
// Running the binary without a subcommand performs the daily evaluation and
// then the weekly scan. The daily and weekly subcommands run one flow each;
// status, clear-feedback and config are maintenance helpers that never call
// the generation API.
package main
