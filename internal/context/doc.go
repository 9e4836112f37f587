// Package ctxengine owns the conversation history sent to the completion
// endpoint: approximate token accounting and budget-driven compaction of
// stale history into a single summary message.
package ctxengine
