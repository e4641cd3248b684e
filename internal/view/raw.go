package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hpungsan/hdcview/internal/errors"
)

// RawNode is one node of a layout dump as produced by "uitest dumpLayout".
type RawNode struct {
	Attributes map[string]string `json:"attributes"`
	Children   []RawNode         `json:"children"`

	// falsy holds keys whose value was a bare JSON false, zero or empty
	// container rather than a string.
	falsy map[string]bool
}

// UnmarshalJSON decodes a dump node. Attribute values arrive as strings on
// most firmware, but some builds emit bare booleans and numbers; those are
// stored in their JSON text form.
func (n *RawNode) UnmarshalJSON(data []byte) error {
	var wire struct {
		Attributes map[string]json.RawMessage `json:"attributes"`
		Children   []RawNode                  `json:"children"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Attributes == nil {
		return errors.NewInvalidRequest("dump node has no attributes object")
	}

	attrs := make(map[string]string, len(wire.Attributes))
	var falsy map[string]bool
	for key, value := range wire.Attributes {
		s, err := stringify(value)
		if err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("attribute %q: %v", key, err))
		}
		attrs[key] = s
		if bareFalsy(value) {
			if falsy == nil {
				falsy = make(map[string]bool)
			}
			falsy[key] = true
		}
	}

	n.Attributes = attrs
	n.Children = wire.Children
	n.falsy = falsy
	return nil
}

// normalize is Normalize for a decoded node. A longClickable that arrived
// as a bare falsy JSON value stays false.
func (n RawNode) normalize() (View, error) {
	v, err := Normalize(n.Attributes)
	if err != nil {
		return View{}, err
	}
	if n.falsy["longClickable"] {
		v.LongClickable = false
	}
	return v, nil
}

// bareFalsy reports whether value is a non-string JSON scalar or container
// that reads as false: false, a zero number, [] or {}.
func bareFalsy(value json.RawMessage) bool {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || value[0] == '"' {
		return false
	}
	switch string(bytes.Join(bytes.Fields(value), nil)) {
	case "false", "[]", "{}":
		return true
	}
	f, err := strconv.ParseFloat(string(value), 64)
	return err == nil && f == 0
}

// stringify renders a JSON scalar as the string a dump would have carried.
// Strings are unquoted, null is empty and everything else keeps its JSON text.
func stringify(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || string(value) == "null" {
		return "", nil
	}
	if value[0] == '"' {
		var s string
		err := json.Unmarshal(value, &s)
		return s, err
	}
	return string(value), nil
}

// Decode reads a layout dump. The root must be an object carrying
// "attributes" and "children"; any other shape is rejected.
func Decode(r io.Reader) (RawNode, error) {
	dec := json.NewDecoder(r)

	var root RawNode
	if err := dec.Decode(&root); err != nil {
		if hErr, ok := errors.As(err); ok {
			return RawNode{}, hErr
		}
		return RawNode{}, errors.NewInvalidRequest(fmt.Sprintf("invalid layout dump: %v", err))
	}
	if dec.More() {
		return RawNode{}, errors.NewInvalidRequest("invalid layout dump: trailing data after root node")
	}

	return root, nil
}
