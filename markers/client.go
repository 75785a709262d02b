// Package markers reconciles a scene with streams of visualization_msgs/MarkerArray messages.
package markers

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/msgs"
	"go.viam.com/rosscene/referenceframe"
	"go.viam.com/rosscene/scene"
	"go.viam.com/rosscene/spatialmath"
	"go.viam.com/rosscene/transport"
	"go.viam.com/rosscene/utils"
)

// DefaultTopic is subscribed when Config.Topic is empty.
const DefaultTopic = "/visualization_marker_array"

// Config configures an ArrayClient.
type Config struct {
	Connection transport.Connection   `json:"-"`
	Tracker    referenceframe.Tracker `json:"-"`
	Root       scene.Node             `json:"-"`
	Builder    Builder                `json:"-"`

	Topic       string `json:"topic"`
	Compression string `json:"compression"`
	// Path is the base path package:// mesh resources are resolved against.
	Path string `json:"path"`
}

// Validate checks the config and fills in defaults.
func (cfg *Config) Validate() error {
	if cfg.Connection == nil {
		return errors.New("marker array client needs a connection")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Root == nil {
		cfg.Root = scene.NewGroup("markers")
	}
	if cfg.Builder == nil {
		cfg.Builder = NewGeometryBuilder(cfg.Path, nil)
	}
	return nil
}

// ArrayClient keeps one displayed entity per marker key.
type ArrayClient struct {
	scene.ChangeNotifier

	cfg    Config
	logger logging.Logger

	mu       sync.Mutex
	topic    transport.Topic
	registry map[Key]*scene.Entity
}

// NewArrayClient validates cfg and subscribes to its topic.
func NewArrayClient(cfg Config, logger logging.Logger) (*ArrayClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &ArrayClient{
		cfg:      cfg,
		logger:   logger,
		registry: map[Key]*scene.Entity{},
	}
	if err := c.Subscribe(); err != nil {
		return nil, err
	}
	return c, nil
}

// Subscribe (re)subscribes to the marker topic, cancelling any previous subscription.
func (c *ArrayClient) Subscribe() error {
	if err := c.Unsubscribe(); err != nil {
		return err
	}
	topic := c.cfg.Connection.Topic(transport.TopicConfig{
		Name:        c.cfg.Topic,
		MessageType: msgs.MarkerArrayType,
		Compression: c.cfg.Compression,
	})
	if err := topic.Subscribe(c.handle); err != nil {
		return errors.Wrapf(err, "subscribing to %q", c.cfg.Topic)
	}
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
	return nil
}

// Unsubscribe cancels the active subscription. It is a no-op when there is none.
func (c *ArrayClient) Unsubscribe() error {
	c.mu.Lock()
	topic := c.topic
	c.topic = nil
	c.mu.Unlock()
	if topic == nil {
		return nil
	}
	return topic.Unsubscribe()
}

func (c *ArrayClient) handle(msg interface{}) {
	switch m := msg.(type) {
	case msgs.MarkerArray:
		c.ProcessMessage(m)
	case *msgs.MarkerArray:
		c.ProcessMessage(*m)
	case msgs.Marker:
		c.ProcessMessage(msgs.MarkerArray{Markers: []msgs.Marker{m}})
	default:
		c.logger.Warnw("ignoring unexpected message", "topic", c.cfg.Topic, "error", utils.NewUnexpectedTypeError(msgs.MarkerArray{}, msg))
	}
}

// ProcessMessage applies every marker of arr in order and then notifies observers once.
func (c *ArrayClient) ProcessMessage(arr msgs.MarkerArray) {
	c.mu.Lock()
	for _, m := range arr.Markers {
		c.apply(m)
	}
	c.mu.Unlock()
	c.NotifyChange()
}

func (c *ArrayClient) apply(m msgs.Marker) {
	key := Key{Namespace: m.Ns, ID: m.ID}
	switch action := Action(m.Action); action {
	case ActionAdd:
		if entity, ok := c.registry[key]; ok {
			obj, isMarker := entity.Object.(Object)
			if !isMarker || !obj.Update(m) {
				c.removeLocked(key)
				return
			}
			if entity.Attachment != nil && entity.Attachment.FrameID() != m.Header.FrameID {
				entity.Attachment.Rebind(m.Header.FrameID)
			}
			return
		}
		obj, err := c.cfg.Builder.Build(m)
		if err != nil {
			c.logger.Warnw("cannot build marker", "ns", m.Ns, "id", m.ID, "error", err)
			return
		}
		entity, err := scene.NewEntity(obj, c.attachmentConfig(m.Header.FrameID))
		if err != nil {
			obj.Dispose()
			c.logger.Warnw("cannot attach marker", "ns", m.Ns, "id", m.ID, "error", err)
			return
		}
		entity.Install(c.cfg.Root)
		c.registry[key] = entity
	case ActionDelete:
		c.removeLocked(key)
	case ActionDeleteAll:
		for k := range c.registry {
			c.removeLocked(k)
		}
	case ActionDeprecated:
		c.logger.Warnw("marker action is deprecated, ignoring", "ns", m.Ns, "id", m.ID, "action", action)
	default:
		c.logger.Warnw("unknown marker action, ignoring", "ns", m.Ns, "id", m.ID, "action", action)
	}
}

func (c *ArrayClient) attachmentConfig(frameID string) *scene.AttachmentConfig {
	if c.cfg.Tracker == nil {
		return nil
	}
	return &scene.AttachmentConfig{FrameID: frameID, Tracker: c.cfg.Tracker, Pose: spatialmath.NewZeroPose()}
}

func (c *ArrayClient) removeLocked(key Key) {
	entity, ok := c.registry[key]
	if !ok {
		return
	}
	delete(c.registry, key)
	entity.Destroy(c.cfg.Root)
}

// Len returns the number of registered markers.
func (c *ArrayClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registry)
}

// Keys returns the registered keys ordered by namespace then id.
func (c *ArrayClient) Keys() []Key {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.registry))
	for k := range c.registry {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Namespace != keys[j].Namespace {
			return keys[i].Namespace < keys[j].Namespace
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Lookup returns the entity registered under key.
func (c *ArrayClient) Lookup(key Key) (*scene.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entity, ok := c.registry[key]
	return entity, ok
}

// Root returns the container markers are attached to.
func (c *ArrayClient) Root() scene.Node {
	return c.cfg.Root
}

// Close unsubscribes and destroys every registered marker.
func (c *ArrayClient) Close() error {
	err := c.Unsubscribe()
	c.mu.Lock()
	n := len(c.registry)
	for k := range c.registry {
		c.removeLocked(k)
	}
	c.mu.Unlock()
	if n > 0 {
		c.NotifyChange()
	}
	return err
}
