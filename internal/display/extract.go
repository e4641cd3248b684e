package display

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	viewportPattern     = regexp.MustCompile(`DisplayViewport\{valid=true, .*orientation=(\d+), .*deviceWidth=(\d+), deviceHeight=(\d+)`)
	physicalSizePattern = regexp.MustCompile(`Physical size: (\d+)x(\d+)`)
	unrestrictedPattern = regexp.MustCompile(`^\s*mUnrestrictedScreen=\((\d+),(\d+)\) (\d+)x(\d+)`)
	legacyWindowPattern = regexp.MustCompile(`^\s*DisplayWidth=(\d+) *DisplayHeight=(\d+)`)
	surfacePattern      = regexp.MustCompile(`SurfaceOrientation:\s+(\d+)`)
	densityPattern      = regexp.MustCompile(`Physical density: ([\d.]+)`)
)

// step is one entry of the fallback chain: it runs only while wanted reports
// that a field it can fill is still missing.
type step struct {
	name   string
	wanted func(*Info) bool
	apply  func(Sources, *Info) bool
}

// steps is the extraction order. Width and height are filled as a pair;
// density is resolved independently of the other fields.
var steps = []step{
	{name: "display viewport", wanted: needsAny, apply: fromViewport},
	{name: "wm size", wanted: needsSize, apply: fromWMSize},
	{name: "window dump", wanted: needsSize, apply: fromWindowDump},
	{name: "input surface orientation", wanted: needsOrientation, apply: fromInputDump},
	{name: "density property", wanted: needsDensity, apply: fromDensityProps},
	{name: "wm density", wanted: needsDensity, apply: fromWMDensity},
}

// Extract runs the fallback chain over src and returns whatever it found.
func Extract(src Sources) Info {
	info, _ := ExtractTrace(src)
	return info
}

// ExtractTrace is Extract that also reports, in order, the names of the
// steps that contributed a value.
func ExtractTrace(src Sources) (Info, []string) {
	var (
		info Info
		used []string
	)
	for _, s := range steps {
		if !s.wanted(&info) {
			continue
		}
		if s.apply(src, &info) {
			used = append(used, s.name)
		}
	}
	return info, used
}

func needsSize(i *Info) bool        { return i.Width == nil || i.Height == nil }
func needsOrientation(i *Info) bool { return i.Orientation == nil }
func needsDensity(i *Info) bool     { return i.Density == nil }
func needsAny(i *Info) bool         { return needsSize(i) || needsOrientation(i) }

// firstMatch returns the submatches of the first line any pattern matches.
func firstMatch(text string, patterns ...*regexp.Regexp) ([]string, *regexp.Regexp) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, p := range patterns {
			if m := p.FindStringSubmatch(line); m != nil {
				return m, p
			}
		}
	}
	return nil, nil
}

// positive parses a decimal dimension; zero and overflow count as absent.
func positive(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func orientation(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 3 {
		return 0, false
	}
	return v, true
}

// setSize fills width and height together, only when both parse.
func setSize(info *Info, w, h string) bool {
	width, okW := positive(w)
	height, okH := positive(h)
	if !okW || !okH {
		return false
	}
	info.Width = intPtr(width)
	info.Height = intPtr(height)
	return true
}

func setOrientation(info *Info, s string) bool {
	o, ok := orientation(s)
	if !ok {
		return false
	}
	info.Orientation = intPtr(o)
	return true
}

// fromViewport reads the first valid logical display viewport. Later
// viewport lines are ignored.
func fromViewport(src Sources, info *Info) bool {
	m, _ := firstMatch(src.DisplayDump, viewportPattern)
	if m == nil {
		return false
	}
	found := false
	if needsOrientation(info) {
		found = setOrientation(info, m[1]) || found
	}
	if needsSize(info) {
		found = setSize(info, m[2], m[3]) || found
	}
	return found
}

func fromWMSize(src Sources, info *Info) bool {
	m, _ := firstMatch(src.WMSize, physicalSizePattern)
	if m == nil {
		return false
	}
	return setSize(info, m[1], m[2])
}

// fromWindowDump accepts either the unrestricted-screen rectangle or the
// legacy DisplayWidth/DisplayHeight line, whichever appears first.
func fromWindowDump(src Sources, info *Info) bool {
	m, p := firstMatch(src.WindowDump, unrestrictedPattern, legacyWindowPattern)
	switch p {
	case unrestrictedPattern:
		return setSize(info, m[3], m[4])
	case legacyWindowPattern:
		return setSize(info, m[1], m[2])
	}
	return false
}

func fromInputDump(src Sources, info *Info) bool {
	m, _ := firstMatch(src.InputDump, surfacePattern)
	if m == nil {
		return false
	}
	return setOrientation(info, m[1])
}

// density parses a positive float. Property values carry no label, so
// surrounding whitespace is the only noise tolerated.
func density(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !(v > 0) || math.IsInf(v, 1) {
		return 0, false
	}
	return v, true
}

func fromDensityProps(src Sources, info *Info) bool {
	for _, raw := range src.DensityProps {
		if d, ok := density(raw); ok {
			info.Density = &d
			return true
		}
	}
	return false
}

func fromWMDensity(src Sources, info *Info) bool {
	m, _ := firstMatch(src.WMDensity, densityPattern)
	if m == nil {
		return false
	}
	d, ok := density(m[1])
	if !ok {
		return false
	}
	info.Density = &d
	return true
}
