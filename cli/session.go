package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/multierr"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/markers"
	"go.viam.com/rosscene/occupancygrid"
	"go.viam.com/rosscene/octomap"
	"go.viam.com/rosscene/scene"
	"go.viam.com/rosscene/transport"
)

const changeBufferSize = 64

// Session runs the configured clients against one connection and shared root.
type Session struct {
	Root    *scene.Group
	Markers *markers.ArrayClient
	Grid    *occupancygrid.Client
	Octomap *octomap.Client

	logger  logging.Logger
	changes chan string
	counts  map[string]int
	cancels []func()
}

// NewSession starts the clients enabled in cfg. The sections of cfg are copied.
func NewSession(conn transport.Connection, cfg Config, logger logging.Logger) (_ *Session, err error) {
	s := &Session{
		Root:    scene.NewGroup("root"),
		logger:  logger,
		changes: make(chan string, changeBufferSize),
		counts:  map[string]int{},
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, s.Close())
		}
	}()

	if cfg.Markers != nil {
		mc := *cfg.Markers
		mc.Connection, mc.Root = conn, s.Root
		if s.Markers, err = markers.NewArrayClient(mc, logger.Sublogger("markers")); err != nil {
			return nil, err
		}
		s.cancels = append(s.cancels, s.Markers.OnChange(s.changed("markers")))
	}
	if cfg.Grid != nil {
		gc := *cfg.Grid
		gc.Connection, gc.Root = conn, s.Root
		if s.Grid, err = occupancygrid.NewClient(gc, logger.Sublogger("grid")); err != nil {
			return nil, err
		}
		s.cancels = append(s.cancels, s.Grid.OnChange(s.changed("grid")))
	}
	if cfg.Octomap != nil {
		oc := *cfg.Octomap
		oc.Connection, oc.Root = conn, s.Root
		if s.Octomap, err = octomap.NewClient(oc, logger.Sublogger("octomap")); err != nil {
			return nil, err
		}
		s.cancels = append(s.cancels, s.Octomap.OnChange(s.changed("octomap")))
	}
	return s, nil
}

func (s *Session) changed(source string) func() {
	return func() {
		select {
		case s.changes <- source:
		default:
			s.logger.Debugw("dropping change report", "source", source)
		}
	}
}

// Run logs a summary of the scene after every change until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case source := <-s.changes:
			s.counts[source]++
			s.logger.Infow("scene changed", "source", source, "nodes", scene.Count(s.Root))
		}
	}
}

// Summary renders what each client displays and how many changes Run saw from it.
// It must not be called while Run is running.
func (s *Session) Summary() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Client", "Changes", "Displayed"})
	if s.Markers != nil {
		t.AppendRow(table.Row{"markers", s.counts["markers"], fmt.Sprintf("%d markers", s.Markers.Len())})
	}
	if s.Grid != nil {
		t.AppendRow(table.Row{"grid", s.counts["grid"], describe(s.Grid.Current())})
	}
	if s.Octomap != nil {
		var current scene.Node
		if e := s.Octomap.Current(); e != nil {
			current = e.Object
		}
		t.AppendRow(table.Row{"octomap", s.counts["octomap"], describe(current)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d nodes", scene.Count(s.Root))})
	return t.Render()
}

func describe(n scene.Node) string {
	if n == nil {
		return "nothing"
	}
	return n.Name()
}

// Close stops every client and removes what they displayed.
func (s *Session) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	var err error
	if s.Markers != nil {
		err = multierr.Combine(err, s.Markers.Close())
	}
	if s.Grid != nil {
		err = multierr.Combine(err, s.Grid.Close())
	}
	if s.Octomap != nil {
		err = multierr.Combine(err, s.Octomap.Close())
	}
	return err
}
