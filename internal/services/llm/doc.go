// Package llm provides a chat-completions client for the text-generation API.
//
// The client speaks the OpenAI-compatible protocol through go-openai and
// defaults to the DeepSeek endpoint. Each Complete call performs exactly one
// HTTP exchange; retries, backoff and attempt logging belong to the request
// pipeline built on top of it.
//
// # Configuration
//
// Requires api_key and model, optionally base_url and timeout_seconds.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send a message sequence, receive content and token usage.
// Classify: map any error returned by Complete onto ClassTransient or
// ClassPermanent.
//
// # Error Classification
//
// Network failures, timeouts, HTTP 408/409/429/5xx and malformed or empty
// response bodies are transient. Other HTTP 4xx responses, request
// validation failures and unrecognized errors are permanent. A cancelled
// context is permanent so callers stop immediately.
package llm
