// Package profile keeps the user's long-term memory: a JSON list of facts
// that accompanies each daily evaluation and is edited by the model through a
// fenced memory_updates block in its response.
package profile
