// Package view turns a nested layout dump into a flat, indexed view tree.
package view

import (
	"encoding/json"
	"fmt"

	"github.com/hpungsan/hdcview/internal/geometry"
)

// View is one normalized UI element. TempID, Parent, Children and ChildCount
// are set by Build; the rest comes from Normalize.
type View struct {
	TempID     int   `json:"temp_id"`
	Parent     int   `json:"parent"`
	Children   []int `json:"children"`
	ChildCount int   `json:"child_count"`

	Visible       bool `json:"visible"`
	Checkable     bool `json:"checkable"`
	Enabled       bool `json:"enabled"`
	Clickable     bool `json:"clickable"`
	Scrollable    bool `json:"scrollable"`
	Selected      bool `json:"selected"`
	Focused       bool `json:"focused"`
	Checked       bool `json:"checked"`
	LongClickable bool `json:"long_clickable"`

	Bounds *geometry.Rect `json:"bounds,omitempty"`
	Size   string         `json:"size,omitempty"`

	Class              *string `json:"class,omitempty"`
	Package            *string `json:"package,omitempty"`
	ContentDescription *string `json:"content_description,omitempty"`

	// Attributes holds every raw attribute without a dedicated field, under
	// its original name.
	Attributes map[string]string `json:"-"`
}

// viewFields mirrors View without its methods so the default encoder can
// handle the typed part.
type viewFields View

// reservedKeys are the JSON names owned by typed fields. A raw attribute with
// one of these names is kept in Attributes but never shadows the typed value.
var reservedKeys = map[string]bool{
	"temp_id": true, "parent": true, "children": true, "child_count": true,
	"visible": true, "checkable": true, "enabled": true, "clickable": true,
	"scrollable": true, "selected": true, "focused": true, "checked": true,
	"long_clickable": true, "bounds": true, "size": true,
	"class": true, "package": true, "content_description": true,
}

// MarshalJSON flattens the typed fields and passthrough attributes into a
// single object.
func (v View) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(viewFields(v))
	if err != nil {
		return nil, err
	}
	if len(v.Attributes) == 0 {
		return typed, nil
	}

	merged := make(map[string]json.RawMessage, len(v.Attributes)+len(reservedKeys))
	for key, value := range v.Attributes {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = data
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	for key, value := range fields {
		merged[key] = value
	}

	return json.Marshal(merged)
}

// UnmarshalJSON reads the flattened form written by MarshalJSON.
func (v *View) UnmarshalJSON(data []byte) error {
	var typed viewFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	for key, value := range all {
		if reservedKeys[key] {
			continue
		}
		s, err := stringify(value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		if typed.Attributes == nil {
			typed.Attributes = make(map[string]string)
		}
		typed.Attributes[key] = s
	}

	if typed.Children == nil {
		typed.Children = []int{}
	}

	*v = View(typed)
	return nil
}

// Attr returns a passthrough attribute, or "" when absent.
func (v *View) Attr(key string) string {
	return v.Attributes[key]
}

// ClassName returns the view's class, or "" when unset.
func (v *View) ClassName() string {
	return deref(v.Class)
}

// Description returns the content description, or "" when unset.
func (v *View) Description() string {
	return deref(v.ContentDescription)
}

// Label is a short human-readable name for the view: its class followed by
// its text or content description when either is set.
func (v *View) Label() string {
	label := v.ClassName()
	if label == "" {
		label = "?"
	}
	if text := v.Attr("text"); text != "" {
		return fmt.Sprintf("%s %q", label, text)
	}
	if desc := v.Description(); desc != "" {
		return fmt.Sprintf("%s (%s)", label, desc)
	}
	return label
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
