// Package rosbridge implements a transport.Connection speaking the rosbridge v2 JSON protocol over
// a websocket.
package rosbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/transport"
)

const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opPublish     = "publish"
	opStatus      = "status"

	compressionNone = "none"
)

// ErrUnsupportedCompression is returned by Subscribe for compression modes whose frames this
// connection cannot decode. Only uncompressed JSON is read.
var ErrUnsupportedCompression = errors.New("unsupported rosbridge compression")

type operation struct {
	Op          string          `json:"op"`
	ID          string          `json:"id,omitempty"`
	Topic       string          `json:"topic,omitempty"`
	Type        string          `json:"type,omitempty"`
	Compression string          `json:"compression,omitempty"`
	Msg         json.RawMessage `json:"msg,omitempty"`
}

// Conn is a rosbridge connection. Messages are decoded and handed to handlers on a single reader
// goroutine, in the order the server sent them.
type Conn struct {
	ws     *websocket.Conn
	logger logging.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu     sync.Mutex
	topics map[string]map[*topic]struct{}
	closed bool

	readerDone chan struct{}
}

// Dial connects to a rosbridge server, e.g. "ws://localhost:9090".
func Dial(ctx context.Context, url string, logger logging.Logger) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing rosbridge at %s", url)
	}
	c := &Conn{
		ws:         ws,
		logger:     logger,
		topics:     map[string]map[*topic]struct{}{},
		readerDone: make(chan struct{}),
	}
	utils.PanicCapturingGo(c.readLoop)
	return c, nil
}

// Topic implements transport.Connection.
func (c *Conn) Topic(cfg transport.TopicConfig) transport.Topic {
	return &topic{conn: c, cfg: cfg}
}

// Done is closed once the connection stops reading, either through Close or a read error.
func (c *Conn) Done() <-chan struct{} {
	return c.readerDone
}

// Close shuts the websocket down and waits for the reader to exit.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err = multierr.Combine(err, c.ws.Close())
	<-c.readerDone
	return err
}

func (c *Conn) send(op operation) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(op)
}

func (c *Conn) readLoop() {
	defer close(c.readerDone)
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Errorw("rosbridge read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			c.logger.Warnw("ignoring non-text rosbridge frame", "frame_type", kind, "size", len(data))
			continue
		}
		var op operation
		if err := json.Unmarshal(data, &op); err != nil {
			c.logger.Warnw("ignoring malformed rosbridge frame", "error", err)
			continue
		}
		switch op.Op {
		case opPublish:
			c.dispatch(op)
		case opStatus:
			c.logger.Debugw("rosbridge status", "id", op.ID)
		default:
			c.logger.Warnw("ignoring rosbridge operation", "op", op.Op, "topic", op.Topic)
		}
	}
}

func (c *Conn) dispatch(op operation) {
	c.mu.Lock()
	subscribed := make([]*topic, 0, len(c.topics[op.Topic]))
	for t := range c.topics[op.Topic] {
		subscribed = append(subscribed, t)
	}
	c.mu.Unlock()
	if len(subscribed) == 0 {
		return
	}

	var raw interface{}
	if err := json.Unmarshal(op.Msg, &raw); err != nil {
		c.logger.Warnw("dropping malformed message", "topic", op.Topic, "error", err)
		return
	}
	for _, t := range subscribed {
		msg, err := transport.DecodeMessage(t.cfg.MessageType, raw)
		if err != nil {
			c.logger.Warnw("dropping undecodable message", "topic", op.Topic, "type", t.cfg.MessageType, "error", err)
			continue
		}
		t.deliver(msg)
	}
}

func (c *Conn) register(t *topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.topics[t.cfg.Name]
	if !ok {
		set = map[*topic]struct{}{}
		c.topics[t.cfg.Name] = set
	}
	set[t] = struct{}{}
}

// deregister removes t from the dispatch table and reports whether the connection is closed.
func (c *Conn) deregister(t *topic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics[t.cfg.Name], t)
	if len(c.topics[t.cfg.Name]) == 0 {
		delete(c.topics, t.cfg.Name)
	}
	return c.closed
}

type topic struct {
	conn *Conn
	cfg  transport.TopicConfig

	mu      sync.Mutex
	id      string
	handler transport.Handler
}

func (t *topic) Name() string {
	return t.cfg.Name
}

func (t *topic) deliver(msg interface{}) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

func (t *topic) Subscribe(handler transport.Handler) error {
	compression := t.cfg.Compression
	if compression != "" && compression != compressionNone {
		return errors.Wrapf(ErrUnsupportedCompression, "%q on %s", compression, t.cfg.Name)
	}
	if err := t.Unsubscribe(); err != nil {
		return err
	}
	id := fmt.Sprintf("subscribe:%s:%d", t.cfg.Name, t.conn.nextID.Add(1))

	t.mu.Lock()
	t.id = id
	t.handler = handler
	t.mu.Unlock()
	t.conn.register(t)

	err := t.conn.send(operation{
		Op:          opSubscribe,
		ID:          id,
		Topic:       t.cfg.Name,
		Type:        t.cfg.MessageType,
		Compression: compression,
	})
	if err != nil {
		t.mu.Lock()
		t.id = ""
		t.handler = nil
		t.mu.Unlock()
		t.conn.deregister(t)
	}
	return err
}

func (t *topic) Unsubscribe() error {
	t.mu.Lock()
	id := t.id
	wasSubscribed := t.handler != nil
	t.id = ""
	t.handler = nil
	t.mu.Unlock()
	if !wasSubscribed {
		return nil
	}

	if closed := t.conn.deregister(t); closed {
		return nil
	}

	return t.conn.send(operation{Op: opUnsubscribe, ID: id, Topic: t.cfg.Name})
}
