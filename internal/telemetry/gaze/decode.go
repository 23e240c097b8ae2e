package gaze

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// decodeSample reads one websocket message into a sample. Tracker firmwares
// disagree on field names and some wrap the sample in a {"data": {...}}
// envelope, so decoding is tolerant: known aliases are tried in order and
// anything unusable reports false instead of an error. Numbers decode via
// json.Number because nanosecond timestamps do not survive float64.
func decodeSample(raw []byte) (storage.GazeSample, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var outer map[string]any
	if err := decoder.Decode(&outer); err != nil {
		return storage.GazeSample{}, false
	}

	body := outer
	if data, ok := outer["data"].(map[string]any); ok {
		body = data
	}

	x, okX := floatField(body, "x", "gx", "gaze_x")
	y, okY := floatField(body, "y", "gy", "gaze_y")
	if !okX || !okY {
		norm, ok := body["norm_pos"].(map[string]any)
		if !ok {
			norm, _ = body["norm"].(map[string]any)
		}
		if norm != nil {
			if !okX {
				x, okX = floatField(norm, "x")
			}
			if !okY {
				y, okY = floatField(norm, "y")
			}
		}
	}
	if !okX || !okY {
		return storage.GazeSample{}, false
	}

	sample := storage.GazeSample{X: x, Y: y}
	if conf, ok := floatField(body, "confidence", "conf", "validity"); ok {
		sample.Conf = &conf
	}
	if ts, ok := intField(body, "device_time_ns", "timestamp_unix_ns", "t", "ts"); ok {
		sample.TDeviceNS = ts
	}
	return sample, true
}

func floatField(body map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		value, present := body[key]
		if !present {
			continue
		}
		if parsed, ok := coerceFloat(value); ok {
			return parsed, true
		}
	}
	return 0, false
}

func intField(body map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		value, present := body[key]
		if !present {
			continue
		}
		if parsed, ok := coerceInt(value); ok {
			return parsed, true
		}
	}
	return 0, false
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func coerceInt(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed, true
		}
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return int64(parsed), true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
