package inject

import (
	"sync"

	"go.viam.com/rosscene/transport"
)

// Topic is an injected transport.Topic. Messages are delivered synchronously with Inject, so tests
// drive the clients on their own goroutine.
type Topic struct {
	transport.Topic
	TopicName       string
	SubscribeFunc   func(handler transport.Handler) error
	UnsubscribeFunc func() error

	mu           sync.Mutex
	handler      transport.Handler
	subscribes   int
	unsubscribes int
}

// NewTopic returns an unsubscribed injected topic.
func NewTopic(name string) *Topic {
	return &Topic{TopicName: name}
}

// Name returns the topic name.
func (t *Topic) Name() string {
	return t.TopicName
}

// Subscribe records the handler and calls the injected Subscribe, if any.
func (t *Topic) Subscribe(handler transport.Handler) error {
	if t.SubscribeFunc != nil {
		if err := t.SubscribeFunc(handler); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribes++
	t.handler = handler
	return nil
}

// Unsubscribe drops the handler and calls the injected Unsubscribe, if any.
func (t *Topic) Unsubscribe() error {
	t.mu.Lock()
	if t.handler != nil {
		t.unsubscribes++
	}
	t.handler = nil
	t.mu.Unlock()
	if t.UnsubscribeFunc != nil {
		return t.UnsubscribeFunc()
	}
	return nil
}

// Subscribed reports whether a handler is registered.
func (t *Topic) Subscribed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler != nil
}

// Counts returns how many times Subscribe and an effective Unsubscribe were called.
func (t *Topic) Counts() (subscribes, unsubscribes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribes, t.unsubscribes
}

// Inject delivers msg to the registered handler and reports whether one was registered.
func (t *Topic) Inject(msg interface{}) bool {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(msg)
	return true
}

// Connection is an injected transport.Connection handing out injected topics by name.
type Connection struct {
	TopicFunc func(cfg transport.TopicConfig) transport.Topic

	mu      sync.Mutex
	topics  map[string]*Topic
	configs []transport.TopicConfig
}

// NewConnection returns a connection creating an injected Topic per name on first use.
func NewConnection() *Connection {
	return &Connection{topics: map[string]*Topic{}}
}

// Topic returns the injected topic for cfg.Name, or the result of TopicFunc when set.
func (c *Connection) Topic(cfg transport.TopicConfig) transport.Topic {
	c.mu.Lock()
	c.configs = append(c.configs, cfg)
	c.mu.Unlock()
	if c.TopicFunc != nil {
		return c.TopicFunc(cfg)
	}
	return c.InjectedTopic(cfg.Name)
}

// InjectedTopic returns the injected topic for name, creating it when needed.
func (c *Connection) InjectedTopic(name string) *Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topics == nil {
		c.topics = map[string]*Topic{}
	}
	t, ok := c.topics[name]
	if !ok {
		t = NewTopic(name)
		c.topics[name] = t
	}
	return t
}

// Configs returns every TopicConfig requested so far.
func (c *Connection) Configs() []transport.TopicConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transport.TopicConfig(nil), c.configs...)
}
