// Package cli contains the rosscene command line application: it replays rosbags or attaches to a
// rosbridge server and reports how the scene clients reconcile what they receive.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/markers"
	"go.viam.com/rosscene/msgs"
	"go.viam.com/rosscene/occupancygrid"
	"go.viam.com/rosscene/octomap"
	"go.viam.com/rosscene/ros"
	"go.viam.com/rosscene/transport"
	"go.viam.com/rosscene/transport/rosbridge"
)

const (
	// Flags.
	generalFlagDebug  = "debug"
	generalFlagConfig = "config"

	replayFlagBag        = "bag"
	replayFlagMarkers    = "markers"
	replayFlagGrid       = "grid"
	replayFlagOctomap    = "octomap"
	replayFlagContinuous = "continuous"
	replayFlagSpeed      = "speed"

	attachFlagURL = "url"

	exportFlagOut    = "out"
	exportFlagTopics = "topics"
	exportFlagStart  = "start"
	exportFlagEnd    = "end"

	markersType = msgs.MarkerArrayType
	gridType    = msgs.OccupancyGridType
	octomapType = msgs.OctomapType
)

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  replayFlagMarkers,
			Usage: "marker array `TOPIC` to display",
		},
		&cli.StringFlag{
			Name:  replayFlagGrid,
			Usage: "occupancy grid `TOPIC` to display",
		},
		&cli.StringFlag{
			Name:  replayFlagOctomap,
			Usage: "octomap `TOPIC` to display",
		},
		&cli.BoolFlag{
			Name:  replayFlagContinuous,
			Usage: "keep updating the grid and octomap instead of showing the first message only",
		},
	}
}

var app = &cli.App{
	Name:            "rosscene",
	Usage:           "reconcile a scene with ROS visualization topics",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load client configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "replay",
			Usage:     "replay a rosbag through the scene clients",
			UsageText: "rosscene replay --bag <file> [--markers <topic>] [--grid <topic>] [--octomap <topic>]",
			Flags: append([]cli.Flag{
				&cli.PathFlag{
					Name:     replayFlagBag,
					Required: true,
					Usage:    "rosbag `FILE` to replay",
				},
				&cli.Float64Flag{
					Name:  replayFlagSpeed,
					Usage: "playback speed relative to the bag's timing, 0 for as fast as possible",
				},
			}, clientFlags()...),
			Action: ReplayAction,
		},
		{
			Name:      "attach",
			Usage:     "subscribe to a rosbridge server and follow its topics",
			UsageText: "rosscene attach --url ws://localhost:9090 [--markers <topic>] [--grid <topic>] [--octomap <topic>]",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     attachFlagURL,
					Required: true,
					Usage:    "rosbridge websocket `URL`",
				},
			}, clientFlags()...),
			Action: AttachAction,
		},
		{
			Name:  "export",
			Usage: "write the topics of a rosbag as JSON lines files",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     replayFlagBag,
					Required: true,
					Usage:    "rosbag `FILE` to export",
				},
				&cli.PathFlag{
					Name:  exportFlagOut,
					Value: ".",
					Usage: "output `DIRECTORY`",
				},
				&cli.StringSliceFlag{
					Name:  exportFlagTopics,
					Usage: "topics to export, all when empty",
				},
				&cli.Int64Flag{
					Name:  exportFlagStart,
					Usage: "first bag second to export",
				},
				&cli.Int64Flag{
					Name:  exportFlagEnd,
					Usage: "last bag second to export",
				},
			},
			Action: ExportAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(generalFlagDebug) {
		return logging.NewDebugLogger("rosscene")
	}
	return logging.NewLogger("rosscene")
}

// sessionConfig merges the config file, if any, with the client flags. A topic flag enables its
// client.
func sessionConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{}
	if path := c.String(generalFlagConfig); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	continuous := c.Bool(replayFlagContinuous)
	if topic := c.String(replayFlagMarkers); topic != "" {
		if cfg.Markers == nil {
			cfg.Markers = &markers.Config{}
		}
		cfg.Markers.Topic = topic
	}
	if topic := c.String(replayFlagGrid); topic != "" {
		if cfg.Grid == nil {
			cfg.Grid = &occupancygrid.Config{}
		}
		cfg.Grid.Topic = topic
	}
	if topic := c.String(replayFlagOctomap); topic != "" {
		if cfg.Octomap == nil {
			cfg.Octomap = &octomap.Config{}
		}
		cfg.Octomap.Topic = topic
	}
	if continuous {
		if cfg.Grid != nil {
			cfg.Grid.Continuous = true
		}
		if cfg.Octomap != nil {
			cfg.Octomap.Continuous = true
		}
	}
	if cfg.Markers == nil && cfg.Grid == nil && cfg.Octomap == nil {
		return nil, errors.New("no client enabled, pass --markers, --grid, --octomap or a config file")
	}
	return cfg, nil
}

// runSession reports scene changes while feed runs. Once feed returns the session is closed.
func runSession(ctx context.Context, out io.Writer, conn transport.Connection, cfg Config, logger logging.Logger,
	feed func(ctx context.Context) error,
) error {
	session, err := NewSession(conn, cfg, logger)
	if err != nil {
		return err
	}
	reportCtx, stopReporting := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Run(reportCtx)
	})
	g.Go(func() error {
		defer stopReporting()
		return feed(gctx)
	})
	err = g.Wait()
	stopReporting()
	fmt.Fprintln(out, session.Summary())
	return multierr.Combine(err, session.Close())
}

// ReplayAction replays a rosbag onto an in-process bus the clients subscribe to.
func ReplayAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := sessionConfig(c)
	if err != nil {
		return err
	}
	rb, err := ros.ReadBag(c.Path(replayFlagBag))
	if err != nil {
		return err
	}
	records, err := ros.LoadRecords(rb, cfg.topics())
	if err != nil {
		return err
	}
	logger.Infow("replaying bag", "bag", c.Path(replayFlagBag), "messages", len(records))

	bus := transport.NewBus(logger.Sublogger("bus"))
	return runSession(c.Context, c.App.Writer, bus, *cfg, logger, func(ctx context.Context) error {
		err := ros.Replay(ctx, records, bus, ros.ReplayOptions{Speed: c.Float64(replayFlagSpeed)}, logger)
		// drains the handlers still running
		return multierr.Combine(err, bus.Close())
	})
}

// AttachAction follows the topics of a rosbridge server until interrupted or disconnected.
func AttachAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := sessionConfig(c)
	if err != nil {
		return err
	}
	conn, err := rosbridge.Dial(c.Context, c.String(attachFlagURL), logger.Sublogger("rosbridge"))
	if err != nil {
		return err
	}
	return runSession(c.Context, c.App.Writer, conn, *cfg, logger, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
		case <-conn.Done():
			logger.Warn("rosbridge connection lost")
		}
		return conn.Close()
	})
}

// ExportAction writes bag topics to JSON lines files.
func ExportAction(c *cli.Context) error {
	rb, err := ros.ReadBag(c.Path(replayFlagBag))
	if err != nil {
		return err
	}
	return ros.WriteTopicsJSON(rb, c.Path(exportFlagOut), c.Int64(exportFlagStart), c.Int64(exportFlagEnd),
		c.StringSlice(exportFlagTopics))
}
