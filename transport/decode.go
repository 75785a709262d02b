package transport

import (
	"encoding/base64"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/msgs"
)

var (
	byteSliceType = reflect.TypeOf([]byte(nil))
	int8SliceType = reflect.TypeOf([]int8(nil))
)

// base64ToBytesHook decodes the base64 strings JSON encoders use for byte arrays.
func base64ToBytesHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || (to != byteSliceType && to != int8SliceType) {
		return data, nil
	}
	raw, err := base64.StdEncoding.DecodeString(data.(string))
	if err != nil {
		return nil, errors.Wrap(err, "byte array is not valid base64")
	}
	if to == byteSliceType {
		return raw, nil
	}
	return msgs.OctomapFromBytes(raw), nil
}

// DecodeInto decodes a generic record, as produced by encoding/json, into out.
func DecodeInto(raw interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: base64ToBytesHook,
		TagName:    "mapstructure",
		Result:     out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// DecodeMessage decodes raw into the Go type registered for messageType and returns it by value.
func DecodeMessage(messageType string, raw interface{}) (interface{}, error) {
	target := msgs.New(messageType)
	if target == nil {
		return nil, errors.Errorf("unsupported message type %q", messageType)
	}
	if err := DecodeInto(raw, target); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", messageType)
	}
	return reflect.ValueOf(target).Elem().Interface(), nil
}

// DecodeAttributes decodes a JSON attribute map into a config struct using its json tags.
func DecodeAttributes(attributes map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(attributes)
}
