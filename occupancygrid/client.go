// Package occupancygrid displays nav_msgs/OccupancyGrid messages, replacing the displayed grid with
// every message received.
package occupancygrid

import (
	"sync"

	"github.com/lucasb-eyer/go-colorful"
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
const DefaultTopic = "/map"

// Config configures a Client.
type Config struct {
	Connection transport.Connection   `json:"-"`
	Tracker    referenceframe.Tracker `json:"-"`
	Root       scene.Node             `json:"-"`
	Builder    Builder                `json:"-"`

	Topic       string `json:"topic"`
	Compression string `json:"compression"`
	// Continuous keeps the subscription after the first grid.
	Continuous bool             `json:"continuous"`
	OffsetPose spatialmath.Pose `json:"-"`
	// Color is a hex colour tinting the default texture, white when empty.
	Color string `json:"color"`
	// Opacity of the default texture; zero means fully opaque.
	Opacity float64 `json:"opacity"`
}

// Validate checks the config and fills in defaults.
func (cfg *Config) Validate() error {
	if cfg.Connection == nil {
		return errors.New("occupancy grid client needs a connection")
	}
	if cfg.Opacity < 0 || cfg.Opacity > 1 {
		return errors.Errorf("opacity %v is outside [0, 1]", cfg.Opacity)
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Root == nil {
		cfg.Root = scene.NewGroup("occupancy_grid")
	}
	if cfg.Builder == nil {
		tint := colorful.Color{R: 1, G: 1, B: 1}
		if cfg.Color != "" {
			c, err := colorful.Hex(cfg.Color)
			if err != nil {
				return errors.Wrapf(err, "invalid color %q", cfg.Color)
			}
			tint = c
		}
		opacity := cfg.Opacity
		if opacity == 0 {
			opacity = 1
		}
		cfg.Builder = TextureBuilder{Color: tint, Opacity: opacity}
	}
	return nil
}

// Client shows the latest occupancy grid. With a Tracker configured, a single attachment follows
// the frame of the latest grid and only its contents change between grids.
type Client struct {
	scene.ChangeNotifier

	cfg    Config
	logger logging.Logger

	mu         sync.Mutex
	topic      transport.Topic
	received   bool
	current    scene.Node
	attachment *scene.Attachment
}

// NewClient validates cfg and subscribes to its topic.
func NewClient(cfg Config, logger logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, logger: logger}
	if err := c.Subscribe(); err != nil {
		return nil, err
	}
	return c, nil
}

// Subscribe (re)subscribes to the grid topic, cancelling any previous subscription.
func (c *Client) Subscribe() error {
	if err := c.Unsubscribe(); err != nil {
		return err
	}
	topic := c.cfg.Connection.Topic(transport.TopicConfig{
		Name:        c.cfg.Topic,
		MessageType: msgs.OccupancyGridType,
		Compression: c.cfg.Compression,
	})
	c.mu.Lock()
	c.received = false
	c.mu.Unlock()
	if err := topic.Subscribe(c.handle); err != nil {
		return errors.Wrapf(err, "subscribing to %q", c.cfg.Topic)
	}
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
	return nil
}

// Unsubscribe cancels the active subscription. It is a no-op when there is none.
func (c *Client) Unsubscribe() error {
	c.mu.Lock()
	topic := c.topic
	c.topic = nil
	c.mu.Unlock()
	if topic == nil {
		return nil
	}
	return topic.Unsubscribe()
}

func (c *Client) handle(msg interface{}) {
	switch m := msg.(type) {
	case msgs.OccupancyGrid:
		c.ProcessMessage(m)
	case *msgs.OccupancyGrid:
		c.ProcessMessage(*m)
	default:
		c.logger.Warnw("ignoring unexpected message", "topic", c.cfg.Topic, "error", utils.NewUnexpectedTypeError(msgs.OccupancyGrid{}, msg))
	}
}

// ProcessMessage replaces the displayed grid with grid. In single shot mode the subscription is
// cancelled afterwards and later grids are ignored.
func (c *Client) ProcessMessage(grid msgs.OccupancyGrid) {
	c.mu.Lock()
	if !c.cfg.Continuous && c.received {
		c.mu.Unlock()
		return
	}
	c.received = true
	installed := c.installLocked(grid)
	c.mu.Unlock()

	if installed {
		c.NotifyChange()
	}
	if !c.cfg.Continuous {
		if err := c.Unsubscribe(); err != nil {
			c.logger.Warnw("cannot unsubscribe", "topic", c.cfg.Topic, "error", err)
		}
	}
}

func (c *Client) installLocked(grid msgs.OccupancyGrid) bool {
	obj, err := c.cfg.Builder.Build(grid)
	if err != nil {
		c.logger.Warnw("cannot build occupancy grid", "topic", c.cfg.Topic, "error", err)
		return false
	}

	if c.cfg.Tracker == nil {
		if c.current != nil {
			c.cfg.Root.Remove(c.current)
			c.current.Dispose()
		}
		c.current = obj
		c.cfg.Root.Add(obj)
		return true
	}

	if c.attachment == nil {
		att, err := scene.NewAttachment(scene.AttachmentConfig{
			FrameID: grid.Header.FrameID,
			Tracker: c.cfg.Tracker,
			Pose:    c.cfg.OffsetPose,
			Object:  obj,
		})
		if err != nil {
			obj.Dispose()
			c.logger.Warnw("cannot attach occupancy grid", "topic", c.cfg.Topic, "error", err)
			return false
		}
		c.attachment = att
		c.current = obj
		c.cfg.Root.Add(att)
		return true
	}

	// Tracking only moves when the frame does; the attachment keeps its pose otherwise.
	rebind := grid.Header.FrameID != c.attachment.FrameID()
	if rebind {
		c.attachment.UnsubscribeTracking()
	}
	if old := c.attachment.SetObject(obj); old != nil {
		old.Dispose()
	}
	c.current = obj
	if rebind {
		c.attachment.Rebind(grid.Header.FrameID)
	}
	return true
}

// Current returns the displayed grid object, or nil before the first grid.
func (c *Client) Current() scene.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Attachment returns the frame tracking attachment, or nil when no Tracker is configured or no
// grid was displayed yet.
func (c *Client) Attachment() *scene.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachment
}

// Root returns the container the grid is attached to.
func (c *Client) Root() scene.Node {
	return c.cfg.Root
}

// Close unsubscribes and removes the displayed grid.
func (c *Client) Close() error {
	err := c.Unsubscribe()
	c.mu.Lock()
	switch {
	case c.attachment != nil:
		c.attachment.UnsubscribeTracking()
		c.cfg.Root.Remove(c.attachment)
		c.attachment.Dispose()
	case c.current != nil:
		c.cfg.Root.Remove(c.current)
		c.current.Dispose()
	}
	c.attachment, c.current = nil, nil
	c.mu.Unlock()
	return err
}
