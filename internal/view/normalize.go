package view

import (
	"github.com/hpungsan/hdcview/internal/geometry"
)

// flagField returns the boolean field a raw flag key maps to, or nil.
// These flags are true only for the literal strings "True" and "true".
func (v *View) flagField(key string) *bool {
	switch key {
	case "visible":
		return &v.Visible
	case "checkable":
		return &v.Checkable
	case "enabled":
		return &v.Enabled
	case "clickable":
		return &v.Clickable
	case "scrollable":
		return &v.Scrollable
	case "selected":
		return &v.Selected
	case "focused":
		return &v.Focused
	case "checked":
		return &v.Checked
	}
	return nil
}

// Normalize maps one raw attribute set onto the view schema. Tree linkage
// fields are left zero. A malformed "bounds" value fails the whole node.
func Normalize(attrs map[string]string) (View, error) {
	v := View{Children: []int{}}

	for key, raw := range attrs {
		if field := v.flagField(key); field != nil {
			*field = raw == "True" || raw == "true"
			continue
		}

		switch key {
		case "longClickable":
			// Any non-empty value counts, including "false".
			v.LongClickable = raw != ""
		case "bounds":
			r, err := geometry.ParseBounds(raw)
			if err != nil {
				return View{}, err
			}
			v.Bounds = &r
			v.Size = r.Size().String()
		case "bundleName":
			v.Package = ptr(raw)
		case "description":
			v.ContentDescription = ptr(raw)
		case "type":
			v.Class = ptr(raw)
		default:
			if v.Attributes == nil {
				v.Attributes = make(map[string]string)
			}
			v.Attributes[key] = raw
		}
	}

	return v, nil
}

func ptr(s string) *string {
	return &s
}
