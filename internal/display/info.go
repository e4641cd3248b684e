// Package display extracts screen geometry from device introspection output
// and maps touch coordinates between orientation frames.
package display

// OrientationUnspecified asks the device layer to use the live orientation
// for both frames of a transform.
const OrientationUnspecified = -1

// Info is best-effort display geometry. Any field may be nil when no source
// reported it; that is a normal result, not an error.
type Info struct {
	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
	Orientation *int     `json:"orientation,omitempty"`
	Density     *float64 `json:"density,omitempty"`
}

// Sources are the raw text blocks the extractor reads. Empty strings stand
// for sources that were unavailable.
type Sources struct {
	DisplayDump string // dumpsys display
	WMSize      string // wm size
	WindowDump  string // dumpsys window
	InputDump   string // dumpsys input

	// DensityProps are property values in lookup order, primary first.
	DensityProps []string
	WMDensity    string // wm density
}

// Missing lists the names of fields no source provided.
func (i Info) Missing() []string {
	var missing []string
	if i.Width == nil {
		missing = append(missing, "width")
	}
	if i.Height == nil {
		missing = append(missing, "height")
	}
	if i.Orientation == nil {
		missing = append(missing, "orientation")
	}
	if i.Density == nil {
		missing = append(missing, "density")
	}
	return missing
}

// OrientationOr returns the orientation, or def when unknown.
func (i Info) OrientationOr(def int) int {
	if i.Orientation == nil {
		return def
	}
	return *i.Orientation
}

// DensityOr returns the density, or def when unknown.
func (i Info) DensityOr(def float64) float64 {
	if i.Density == nil {
		return def
	}
	return *i.Density
}

func intPtr(v int) *int {
	return &v
}
