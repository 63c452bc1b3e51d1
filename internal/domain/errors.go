package domain

import "errors"

var (
	ErrDuplicateClient   = errors.New("client already exists")
	ErrUnknownClient     = errors.New("client not found")
	ErrTopicNotFound     = errors.New("channel not found")
	ErrDeliveryFailure   = errors.New("delivery failed")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)
