// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (errors.go, message.go, request.go, response.go) hold the
// shared relay vocabulary: requests a client may send, the responses it gets back,
// and the messages fanned out to topic subscribers. No implementation code, just contracts.
package domain
