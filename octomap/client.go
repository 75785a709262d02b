// Package octomap displays octomap_msgs/Octomap messages. Decoding a tree and building its voxels
// runs on a worker goroutine; the result is installed in the scene afterwards under the client's
// lock, replacing the tree displayed before.
//
// Decodes are not ordered: when a later message decodes faster than an earlier one, the earlier
// tree is installed last and stays displayed. Set Config.DropStaleDecodes to discard results that
// finish after a newer message's result was installed.
package octomap

import (
	"context"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/msgs"
	"go.viam.com/rosscene/octree"
	"go.viam.com/rosscene/referenceframe"
	"go.viam.com/rosscene/scene"
	"go.viam.com/rosscene/spatialmath"
	"go.viam.com/rosscene/transport"
	"go.viam.com/rosscene/utils"
)

// DefaultTopic is subscribed when Config.Topic is empty.
const DefaultTopic = "/octomap_full"

var (
	// ErrAlreadyReceived rejects messages reaching a single shot client after its first one.
	ErrAlreadyReceived = errors.New("single shot client already received a message")
	// ErrStaleDecode rejects a decode that finished after a newer one was installed.
	ErrStaleDecode = errors.New("a newer octree is already installed")
	// ErrClosed rejects decodes that finish after Close.
	ErrClosed = errors.New("octomap client closed")
)

// A Builder decodes an octomap message and builds its renderable object. It must not touch the
// scene.
type Builder interface {
	Build(m msgs.Octomap) (scene.Node, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(m msgs.Octomap) (scene.Node, error)

// Build calls f.
func (f BuilderFunc) Build(m msgs.Octomap) (scene.Node, error) {
	return f(m)
}

// VoxelBuilder decodes trees with octree.Decode and renders them with octree.BuildVoxels.
type VoxelBuilder struct {
	Options octree.VoxelOptions
}

// Build implements Builder.
func (vb VoxelBuilder) Build(m msgs.Octomap) (scene.Node, error) {
	tree, err := octree.Decode(m)
	if err != nil {
		return nil, err
	}
	return octree.BuildVoxels(tree, vb.Options)
}

// Config configures a Client. The rendering hints are handed to the default builder untouched.
type Config struct {
	Connection transport.Connection   `json:"-"`
	Tracker    referenceframe.Tracker `json:"-"`
	Root       scene.Node             `json:"-"`
	Builder    Builder                `json:"-"`

	Topic       string           `json:"topic"`
	Compression string           `json:"compression"`
	Continuous  bool             `json:"continuous"`
	OffsetPose  spatialmath.Pose `json:"-"`

	Color           string   `json:"color"`
	Opacity         float64  `json:"opacity"`
	ColorMode       string   `json:"color_mode"`
	Palette         []string `json:"palette"`
	PaletteScale    float64  `json:"palette_scale"`
	VoxelRenderMode string   `json:"voxel_render_mode"`

	DropStaleDecodes bool `json:"drop_stale_decodes"`
}

// Validate checks the config and fills in defaults.
func (cfg *Config) Validate() error {
	if cfg.Connection == nil {
		return errors.New("octomap client needs a connection")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Root == nil {
		cfg.Root = scene.NewGroup("octomap")
	}
	if cfg.Builder == nil {
		opts, err := cfg.voxelOptions()
		if err != nil {
			return err
		}
		cfg.Builder = VoxelBuilder{Options: opts}
	}
	return nil
}

func (cfg *Config) voxelOptions() (octree.VoxelOptions, error) {
	opts := octree.VoxelOptions{
		ColorMode:    octree.ColorMode(cfg.ColorMode),
		RenderMode:   octree.RenderMode(cfg.VoxelRenderMode),
		PaletteScale: cfg.PaletteScale,
		Opacity:      cfg.Opacity,
	}
	if cfg.Color != "" {
		c, err := colorful.Hex(cfg.Color)
		if err != nil {
			return opts, errors.Wrapf(err, "invalid color %q", cfg.Color)
		}
		opts.Color = &c
	}
	for _, hex := range cfg.Palette {
		c, err := colorful.Hex(hex)
		if err != nil {
			return opts, errors.Wrapf(err, "invalid palette color %q", hex)
		}
		opts.Palette = append(opts.Palette, c)
	}
	return opts, nil
}

// Client shows the latest octree.
type Client struct {
	scene.ChangeNotifier

	cfg     Config
	logger  logging.Logger
	workers *utils.Workers

	mu        sync.Mutex
	topic     transport.Topic
	received  bool
	submitted uint64
	installed uint64
	current   *scene.Entity
}

// NewClient validates cfg and subscribes to its topic.
func NewClient(cfg Config, logger logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, logger: logger, workers: utils.NewWorkers()}
	if err := c.Subscribe(); err != nil {
		c.workers.Stop()
		return nil, err
	}
	return c, nil
}

// Subscribe (re)subscribes to the octomap topic, cancelling any previous subscription. Decodes
// already in flight are not cancelled.
func (c *Client) Subscribe() error {
	if err := c.Unsubscribe(); err != nil {
		return err
	}
	topic := c.cfg.Connection.Topic(transport.TopicConfig{
		Name:        c.cfg.Topic,
		MessageType: msgs.OctomapType,
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
	case msgs.Octomap:
		c.ProcessMessage(m)
	case *msgs.Octomap:
		c.ProcessMessage(*m)
	default:
		c.logger.Warnw("ignoring unexpected message", "topic", c.cfg.Topic, "error", utils.NewUnexpectedTypeError(msgs.Octomap{}, msg))
	}
}

// ProcessMessage schedules the decode of m and returns a future resolving to the installed entity.
// A failed decode rejects the future and leaves the scene untouched. A single shot client
// unsubscribes as soon as the message is received, before the decode finishes.
func (c *Client) ProcessMessage(m msgs.Octomap) *utils.Future[*scene.Entity] {
	c.mu.Lock()
	if !c.cfg.Continuous && c.received {
		c.mu.Unlock()
		return utils.Rejected[*scene.Entity](ErrAlreadyReceived)
	}
	c.received = true
	c.submitted++
	generation := c.submitted
	c.mu.Unlock()

	if !c.cfg.Continuous {
		if err := c.Unsubscribe(); err != nil {
			c.logger.Warnw("cannot unsubscribe", "topic", c.cfg.Topic, "error", err)
		}
	}

	frameID := m.Header.FrameID
	return utils.Submit(c.workers, func(ctx context.Context) (*scene.Entity, error) {
		obj, err := c.cfg.Builder.Build(m)
		if err != nil {
			c.logger.Warnw("cannot decode octree", "topic", c.cfg.Topic, "type", octree.KindOf(m), "error", err)
			return nil, err
		}
		if obj == nil {
			return nil, scene.ErrNilObject
		}
		return c.install(ctx, generation, frameID, obj)
	})
}

func (c *Client) install(ctx context.Context, generation uint64, frameID string, obj scene.Node) (*scene.Entity, error) {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		obj.Dispose()
		return nil, ErrClosed
	}
	if c.cfg.DropStaleDecodes && generation < c.installed {
		c.mu.Unlock()
		obj.Dispose()
		return nil, ErrStaleDecode
	}

	var attachCfg *scene.AttachmentConfig
	if c.cfg.Tracker != nil {
		attachCfg = &scene.AttachmentConfig{FrameID: frameID, Tracker: c.cfg.Tracker, Pose: c.cfg.OffsetPose}
	}
	entity, err := scene.NewEntity(obj, attachCfg)
	if err != nil {
		c.mu.Unlock()
		obj.Dispose()
		return nil, err
	}
	if c.current != nil {
		c.current.Destroy(c.cfg.Root)
	}
	entity.Install(c.cfg.Root)
	c.current = entity
	c.installed = generation
	c.mu.Unlock()

	c.NotifyChange()
	return entity, nil
}

// Current returns the displayed entity, or nil before the first install.
func (c *Client) Current() *scene.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Root returns the container the octree is attached to.
func (c *Client) Root() scene.Node {
	return c.cfg.Root
}

// Close unsubscribes, waits for in-flight decodes, which are then discarded, and removes the
// displayed octree.
func (c *Client) Close() error {
	err := c.Unsubscribe()
	c.workers.Stop()

	c.mu.Lock()
	current := c.current
	c.current = nil
	c.mu.Unlock()
	if current != nil {
		current.Destroy(c.cfg.Root)
	}
	return err
}
