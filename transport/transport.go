// Package transport defines the publish/subscribe topic abstraction the scene clients consume,
// together with an in-process bus and message decoding helpers.
package transport

import "github.com/pkg/errors"

// ErrClosed is returned when using a connection that has been closed.
var ErrClosed = errors.New("transport closed")

// Handler receives one decoded message at a time.
type Handler func(msg interface{})

// TopicConfig names a topic and how its messages should be delivered.
type TopicConfig struct {
	Name        string
	MessageType string
	// Compression is passed to the transport verbatim, e.g. "png" or "cbor".
	Compression string
}

// A Topic delivers messages published on one name to at most one registered handler.
type Topic interface {
	Name() string
	// Subscribe registers handler, replacing and cancelling any previous subscription.
	Subscribe(handler Handler) error
	// Unsubscribe cancels the active subscription. It is a no-op when nothing is subscribed.
	Unsubscribe() error
}

// A Connection hands out topics.
type Connection interface {
	Topic(cfg TopicConfig) Topic
}
