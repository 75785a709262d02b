package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/moby/pubsub"
	"go.viam.com/utils"

	"go.viam.com/rosscene/logging"
)

const (
	busPublishTimeout = 100 * time.Millisecond
	busBufferSize     = 1024
)

type envelope struct {
	topic string
	msg   interface{}
}

// Bus is an in-process Connection. Messages published on a topic name are delivered, in publish
// order, to every topic subscribed under that name. A subscriber that falls more than the buffer
// behind loses messages.
type Bus struct {
	mu        sync.RWMutex
	closed    bool
	publisher *pubsub.Publisher
	workers   sync.WaitGroup
	logger    logging.Logger
}

// NewBus returns an open bus.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		publisher: pubsub.NewPublisher(busPublishTimeout, busBufferSize),
		logger:    logger,
	}
}

// Topic implements Connection.
func (b *Bus) Topic(cfg TopicConfig) Topic {
	return &busTopic{bus: b, cfg: cfg}
}

// Publish sends msg to the subscribers of topic.
func (b *Bus) Publish(topic string, msg interface{}) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	b.publisher.Publish(envelope{topic: topic, msg: msg})
	return nil
}

// NumSubscribers returns the number of live subscriptions across all topics.
func (b *Bus) NumSubscribers() int {
	return b.publisher.Len()
}

// Close evicts every subscriber and waits for in-flight handlers to return.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.publisher.Close()
	b.mu.Unlock()

	b.workers.Wait()
	return nil
}

func (b *Bus) subscribe(name string, handler Handler) (*busSubscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &busSubscription{
		ch: b.publisher.SubscribeTopic(func(v interface{}) bool {
			env, ok := v.(envelope)
			return ok && env.topic == name
		}),
	}
	b.workers.Add(1)
	utils.PanicCapturingGo(func() {
		defer b.workers.Done()
		for v := range sub.ch {
			if sub.stopped.Load() {
				continue
			}
			handler(v.(envelope).msg)
		}
	})
	return sub, nil
}

func (b *Bus) evict(sub *busSubscription) {
	sub.stopped.Store(true)
	b.mu.Lock()
	defer b.mu.Unlock()
	// Close already evicted everything.
	if !b.closed {
		b.publisher.Evict(sub.ch)
	}
}

type busSubscription struct {
	ch      chan interface{}
	stopped atomic.Bool
}

type busTopic struct {
	bus *Bus
	cfg TopicConfig

	mu  sync.Mutex
	sub *busSubscription
}

func (t *busTopic) Name() string {
	return t.cfg.Name
}

func (t *busTopic) Subscribe(handler Handler) error {
	if err := t.Unsubscribe(); err != nil {
		return err
	}
	sub, err := t.bus.subscribe(t.cfg.Name, handler)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	if t.bus.logger != nil {
		t.bus.logger.Debugw("subscribed", "topic", t.cfg.Name, "type", t.cfg.MessageType)
	}
	return nil
}

func (t *busTopic) Unsubscribe() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()
	if sub == nil {
		return nil
	}
	t.bus.evict(sub)
	return nil
}
