package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banshee-data/panel.preview/internal/monitoring"
)

// Condition classifies the outcome of a decode so the caller can pick the
// right user-facing message. Decoding never raises a fault: malformed input
// is a Condition, not an error the caller has to handle.
type Condition int

const (
	// CondOK means the body parsed and the sensors mapping was visited.
	CondOK Condition = iota
	// CondEmpty means there was nothing to decode: an empty body, a
	// non-object body, or no sensors mapping.
	CondEmpty
	// CondNoData means the collector reported a transport failure via the
	// error sentinel.
	CondNoData
	// CondMalformed means the body was present but not valid JSON.
	CondMalformed
)

func (c Condition) String() string {
	switch c {
	case CondOK:
		return "ok"
	case CondEmpty:
		return "empty"
	case CondNoData:
		return "no_data"
	case CondMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the outcome of decoding one raw payload envelope.
type Result struct {
	Frame     FrameKind `json:"frame"`
	Condition Condition `json:"condition"`
	Readings  []Reading `json:"readings"`

	// Err holds the underlying parse error when Condition is CondMalformed.
	// It exists for logging; callers branch on Condition, not Err.
	Err error `json:"-"`
}

// DecodeRaw strips the wire framing and decodes the body in one step.
func DecodeRaw(raw string) Result {
	body, frame := Strip(raw)
	if frame == FrameErrorSentinel {
		return Result{Frame: frame, Condition: CondNoData}
	}
	readings, cond, err := decodeBody(body)
	if err != nil {
		monitoring.Logf("[payload] decode: %v", err)
	}
	return Result{Frame: frame, Condition: cond, Readings: readings, Err: err}
}

// Decode parses an already-stripped JSON body into display readings. Parse
// failures are logged and surfaced as a Condition, never as a fault.
func Decode(body string) ([]Reading, Condition) {
	readings, cond, err := decodeBody(body)
	if err != nil {
		monitoring.Logf("[payload] decode: %v", err)
	}
	return readings, cond
}

func decodeBody(body string) ([]Reading, Condition, error) {
	if strings.TrimSpace(body) == "" {
		return nil, CondEmpty, nil
	}

	entries, err := sensorEntries(body)
	if err != nil {
		return nil, CondMalformed, err
	}
	if entries == nil {
		return nil, CondEmpty, nil
	}

	// A neopixel color entry overrides everything else on the screen: the
	// panel is in single-color mode and no other readings are shown.
	for _, e := range entries {
		if e.tag == "neopixel" && classifyEntry(e.raw) == shapeColor {
			if color, ok := colorValue(e.raw); ok {
				return []Reading{{Tag: "neopixel", Value: color, IsColor: true}}, CondOK, nil
			}
		}
	}

	readings := make([]Reading, 0, len(entries))
	for _, e := range entries {
		switch classifyEntry(e.raw) {
		case shapeKeyedArray:
			if r, ok := decodeKeyedArray(e.tag, e.raw); ok {
				readings = append(readings, r)
			}
		case shapeMatrix:
			if r, ok := decodeMatrix(e.tag, e.raw); ok {
				readings = append(readings, r)
			}
		default:
			// Unrecognized entry shapes are skipped, not faulted: a
			// newer firmware may emit dialects this build cannot show.
		}
	}
	return readings, CondOK, nil
}

// sensorEntry is one tag/value pair from the sensors mapping, value kept raw
// so the dialect decoders can inspect its shape.
type sensorEntry struct {
	tag string
	raw json.RawMessage
}

// sensorEntries walks the top-level object with a streaming decoder so the
// sensors mapping is visited in the order the firmware wrote it. Emission
// order is part of the payload contract; a map type would scramble it.
//
// A nil return with nil error means "no sensors mapping"; a non-nil empty
// slice means the mapping exists but holds no entries.
func sensorEntries(body string) ([]sensorEntry, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		// Valid JSON that is not an object carries no sensors.
		return nil, nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse payload key: %w", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse payload value for %q: %w", key, err)
		}
		if key == "sensors" {
			return splitMapping(raw)
		}
	}
	return nil, nil
}

// splitMapping breaks the sensors object into ordered entries. A duplicated
// tag keeps its first-seen position but takes the last-seen value.
func splitMapping(raw json.RawMessage) ([]sensorEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse sensors: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	entries := []sensorEntry{}
	seen := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse sensors key: %w", err)
		}
		tag, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse sensor %q: %w", tag, err)
		}

		if idx, dup := seen[tag]; dup {
			entries[idx].raw = value
			continue
		}
		seen[tag] = len(entries)
		entries = append(entries, sensorEntry{tag: tag, raw: value})
	}
	return entries, nil
}

// entryShape is the closed set of sensor entry dialects. Each entry is
// classified exactly once; the variants are mutually exclusive.
type entryShape int

const (
	shapeUnrecognized entryShape = iota
	shapeKeyedArray              // non-empty array of attribute objects
	shapeMatrix                  // object with Position and Data fields
	shapeColor                   // object with a color string
)

func classifyEntry(raw json.RawMessage) entryShape {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 {
		return shapeUnrecognized
	}
	switch s[0] {
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(s, &items) == nil && len(items) > 0 {
			return shapeKeyedArray
		}
	case '{':
		var probe struct {
			Position json.RawMessage `json:"Position"`
			Data     json.RawMessage `json:"Data"`
			Color    *string         `json:"color"`
		}
		if json.Unmarshal(s, &probe) != nil {
			return shapeUnrecognized
		}
		if probe.Color != nil {
			return shapeColor
		}
		if probe.Position != nil && isArray(probe.Data) {
			return shapeMatrix
		}
	}
	return shapeUnrecognized
}

func isArray(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) > 0 && s[0] == '['
}

// decodeKeyedArray handles the common dialect: the entry is an array of
// attribute objects and only the first element is displayed.
func decodeKeyedArray(tag string, raw json.RawMessage) (Reading, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return Reading{}, false
	}

	r := Reading{Tag: tag, Value: json.Number("0")}
	fields := objectFields(items[0])
	if v, ok := lookupField(fields, "Value", "value"); ok {
		r.Value = scalarValue(v)
	}
	if u, ok := lookupField(fields, "Unit", "unit"); ok {
		if s, isStr := scalarValue(u).(string); isStr {
			r.Unit = s
		}
	}
	return r, true
}

// decodeMatrix handles the character-matrix dialect: a placed text line of
// the form "label value unit", with the label dropped in favour of the tag.
func decodeMatrix(tag string, raw json.RawMessage) (Reading, bool) {
	var entry struct {
		Position *Position `json:"Position"`
		Data     []struct {
			Text string `json:"text"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Position == nil {
		return Reading{}, false
	}

	text := ""
	if len(entry.Data) > 0 {
		text = entry.Data[0].Text
	}
	tokens := strings.Split(text, " ")

	r := Reading{Tag: tag, Value: "0", Position: entry.Position}
	if len(tokens) > 1 {
		r.Value = tokens[1]
	}
	if len(tokens) > 2 {
		r.Unit = tokens[2]
	}
	return r, true
}

func colorValue(raw json.RawMessage) (string, bool) {
	var entry struct {
		Color *string `json:"color"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Color == nil {
		return "", false
	}
	return *entry.Color, true
}

func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	fields := make(map[string]json.RawMessage)
	if json.Unmarshal(raw, &fields) != nil {
		return nil
	}
	return fields
}

// lookupField tries keys in order; firmware builds disagree on casing.
func lookupField(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// scalarValue decodes a raw JSON scalar, keeping numbers as json.Number so
// formatting round-trips exactly what the firmware sent.
func scalarValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return json.Number("0")
	}
	return v
}
