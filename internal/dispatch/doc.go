// Package dispatch implements the topic dispatcher using the actor pattern.
//
// A single goroutine owns the client/topic registry and every client's Mailbox.
// Connect, Disconnect, Subscribe, Unsubscribe and Publish are commands sent over one
// channel, so each runs atomically against both indexes and no reader ever sees them
// disagree. Fan-out enqueues are non-blocking: a full mailbox drops the message for
// that subscriber only. Per-connection writer goroutines drain mailboxes, so a slow
// socket never stalls the command loop.
package dispatch
