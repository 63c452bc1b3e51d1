package dispatch

import "context"

// dispatcherCmd is the command interface for the Dispatcher actor.
type dispatcherCmd interface{ isDispatcherCmd() }

type baseDispatcherCmd struct{}

func (baseDispatcherCmd) isDispatcherCmd() {}

type connectResult struct {
	mailbox *Mailbox
	err     error
}

type countResult struct {
	count int
	err   error
}

type topicsResult struct {
	topics []string
	err    error
}

type connectCmd struct {
	baseDispatcherCmd
	ctx    context.Context
	client string
	reply  chan<- connectResult
}

type disconnectCmd struct {
	baseDispatcherCmd
	ctx    context.Context
	client string
	reply  chan<- struct{}
}

type subscribeCmd struct {
	baseDispatcherCmd
	ctx    context.Context
	client string
	topic  string
	reply  chan<- countResult
}

type unsubscribeCmd struct {
	baseDispatcherCmd
	ctx    context.Context
	client string
	topic  string
	reply  chan<- error
}

type publishCmd struct {
	baseDispatcherCmd
	ctx     context.Context
	sender  string
	topic   string
	content string
	reply   chan<- error
}

type topicsCmd struct {
	baseDispatcherCmd
	client string
	reply  chan<- topicsResult
}

type subscribersCmd struct {
	baseDispatcherCmd
	topic string
	reply chan<- []string
}

type statsCmd struct {
	baseDispatcherCmd
	reply chan<- Stats
}

type stopCmd struct {
	baseDispatcherCmd
}
