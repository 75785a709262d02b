package msgs

// MapMetaData is a nav_msgs/MapMetaData.
type MapMetaData struct {
	MapLoadTime Time    `mapstructure:"map_load_time" json:"map_load_time"`
	Resolution  float32 `mapstructure:"resolution" json:"resolution"`
	Width       uint32  `mapstructure:"width" json:"width"`
	Height      uint32  `mapstructure:"height" json:"height"`
	Origin      Pose    `mapstructure:"origin" json:"origin"`
}

// OccupancyGrid is a nav_msgs/OccupancyGrid. Data is row major, starting at the origin cell, with
// values in [0, 100] or -1 for unknown.
type OccupancyGrid struct {
	Header Header      `mapstructure:"header" json:"header"`
	Info   MapMetaData `mapstructure:"info" json:"info"`
	Data   []int8      `mapstructure:"data" json:"data"`
}

// Octomap is an octomap_msgs/Octomap. ID names the tree class for full (non binary) maps, e.g.
// "OcTree" or "ColorOcTree".
type Octomap struct {
	Header     Header  `mapstructure:"header" json:"header"`
	Binary     bool    `mapstructure:"binary" json:"binary"`
	ID         string  `mapstructure:"id" json:"id"`
	Resolution float64 `mapstructure:"resolution" json:"resolution"`
	Data       []int8  `mapstructure:"data" json:"data"`
}

// Bytes returns the payload as raw bytes.
func (o Octomap) Bytes() []byte {
	out := make([]byte, len(o.Data))
	for i, v := range o.Data {
		out[i] = byte(v)
	}
	return out
}

// OctomapFromBytes builds the int8 payload of an Octomap from raw bytes.
func OctomapFromBytes(data []byte) []int8 {
	out := make([]int8, len(data))
	for i, v := range data {
		out[i] = int8(v)
	}
	return out
}
