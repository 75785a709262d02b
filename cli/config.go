package cli

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"go.viam.com/rosscene/markers"
	"go.viam.com/rosscene/occupancygrid"
	"go.viam.com/rosscene/octomap"
	"go.viam.com/rosscene/transport"
)

// Config selects the scene clients a session runs. A nil section disables that client.
type Config struct {
	Markers *markers.Config       `json:"markers"`
	Grid    *occupancygrid.Config `json:"grid"`
	Octomap *octomap.Config       `json:"octomap"`
}

// LoadConfig reads a JSON config file of the form
//
//	{"markers": {"topic": "/viz"}, "grid": {"continuous": true, "color": "#00ff00"}}
func LoadConfig(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a JSON config.
func ParseConfig(data []byte) (*Config, error) {
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrap(err, "config is not a JSON object")
	}
	var cfg Config
	if err := transport.DecodeAttributes(attributes, &cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// topics maps the topic of every enabled client to its message type.
func (cfg *Config) topics() map[string]string {
	topics := map[string]string{}
	if cfg.Markers != nil {
		topics[orDefault(cfg.Markers.Topic, markers.DefaultTopic)] = markersType
	}
	if cfg.Grid != nil {
		topics[orDefault(cfg.Grid.Topic, occupancygrid.DefaultTopic)] = gridType
	}
	if cfg.Octomap != nil {
		topics[orDefault(cfg.Octomap.Topic, octomap.DefaultTopic)] = octomapType
	}
	return topics
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
