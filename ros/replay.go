package ros

import (
	"context"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/msgs"
	"go.viam.com/rosscene/transport"
)

// Record is one decoded bag message.
type Record struct {
	Topic   string
	Time    time.Time
	Message interface{}
}

// A Publisher accepts replayed messages. *transport.Bus is one.
type Publisher interface {
	Publish(topic string, msg interface{}) error
}

type recordMeta struct {
	Secs  int64 `mapstructure:"secs"`
	Nsecs int64 `mapstructure:"nsecs"`
}

// LoadRecords decodes the messages of the given topics, keyed by topic name with their message
// type as value, and returns them ordered by bag time.
func LoadRecords(rb *rosbag.RosBag, topics map[string]string) ([]Record, error) {
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := parseTopics(rb, names); err != nil {
		return nil, err
	}

	var records []Record
	for _, name := range names {
		raw, err := readRecords(rb, name)
		if err != nil {
			return nil, err
		}
		for i, r := range raw {
			record, err := decodeRecord(name, topics[name], r)
			if err != nil {
				return nil, errors.Wrapf(err, "message %d on %s", i, name)
			}
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})
	return records, nil
}

func decodeRecord(topic, messageType string, raw map[string]interface{}) (Record, error) {
	var meta recordMeta
	if err := transport.DecodeInto(raw["meta"], &meta); err != nil {
		return Record{}, errors.Wrap(err, "invalid bag time")
	}
	msg, err := transport.DecodeMessage(messageType, raw["data"])
	if err != nil {
		return Record{}, err
	}
	return Record{Topic: topic, Time: time.Unix(meta.Secs, meta.Nsecs), Message: msg}, nil
}

// ReplayOptions control the pacing of a replay.
type ReplayOptions struct {
	// Speed scales the bag's timing; zero publishes as fast as possible.
	Speed float64
	Clock clock.Clock
}

// Replay publishes records in order. With a positive speed the gaps between bag times are
// reproduced, divided by the speed.
func Replay(ctx context.Context, records []Record, pub Publisher, opts ReplayOptions, logger logging.Logger) error {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	for i, r := range records {
		if opts.Speed > 0 && i > 0 {
			gap := time.Duration(float64(r.Time.Sub(records[i-1].Time)) / opts.Speed)
			if gap > 0 {
				timer := clk.Timer(gap)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := pub.Publish(r.Topic, r.Message); err != nil {
			return errors.Wrapf(err, "publishing to %s", r.Topic)
		}
		logger.CDebugw(ctx, "replayed message", "topic", r.Topic, "time", r.Time)
	}
	return nil
}

// DefaultTopicTypes maps the default topic of each scene client to its message type.
func DefaultTopicTypes() map[string]string {
	return map[string]string{
		"/visualization_marker_array": msgs.MarkerArrayType,
		"/map":                        msgs.OccupancyGridType,
		"/octomap_full":               msgs.OctomapType,
	}
}
