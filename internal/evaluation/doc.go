// Package evaluation produces the daily feedback section for one diary day.
//
// Evaluate reads the target day, gathers the preceding days, recent weekly
// summaries and the open-todo digest, sends one request through the pipeline
// and writes the reply back into the diary file. A day without a diary is a
// no-op that never reaches the API.
package evaluation
