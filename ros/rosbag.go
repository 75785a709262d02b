// Package ros reads rosbags and replays the topics the scene clients consume onto a transport.Bus.
package ros

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()
	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to read ros bag %q", filename)
	}
	return rb, nil
}

// TopicKey returns the key gobag files the JSON records of topic under.
func TopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// WriteTopicsJSON writes one JSON lines file per topic into outputDir, restricted to the given
// topics (all when empty) and to bag times in [startTime, endTime] seconds when both are set.
func WriteTopicsJSON(rb *rosbag.RosBag, outputDir string, startTime, endTime int64, topics []string) error {
	if err := rb.WriteTopicsJSON(outputDir, startTime, endTime, topics); err != nil {
		return errors.Wrapf(err, "error while writing bag topics to %q", outputDir)
	}
	return nil
}

// parseTopics converts the messages of every topic in topics to JSON records, once.
func parseTopics(rb *rosbag.RosBag, topics []string) error {
	wanted := make(map[string]bool, len(topics))
	for _, topic := range topics {
		wanted[topic] = true
	}
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return wanted[t] },
		false,
	); err != nil {
		return errors.Wrapf(err, "error while parsing bag to JSON")
	}
	return nil
}

// readRecords decodes the JSON lines gobag collected for topic.
func readRecords(rb *rosbag.RosBag, topic string) ([]map[string]interface{}, error) {
	lines := rb.TopicsAsJSON[TopicKey(topic)]
	if lines == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}

	all := []map[string]interface{}{}
	for {
		data, err := lines.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		message := map[string]interface{}{}
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, errors.Wrapf(err, "invalid record on topic %s", topic)
		}
		all = append(all, message)
	}
	return all, nil
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag. Each message has a
// "meta" entry holding its bag time and a "data" entry holding the message itself.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([]map[string]interface{}, error) {
	if err := parseTopics(rb, []string{topic}); err != nil {
		return nil, err
	}
	return readRecords(rb, topic)
}
