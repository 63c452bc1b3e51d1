// Package websocket is the connection handler of the relay.
//
// Each accepted socket is registered with the dispatcher under a client name and then
// served by two goroutines: a reader that decodes request frames and hands them to the
// dispatcher, and a writer that owns every write to the socket (the ack, replies, fanned
// out messages, pings and the final close frame).
package websocket
