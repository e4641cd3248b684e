package view

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// walk visits views depth-first in sibling order, without recursion.
func (t Tree) walk(visit func(v *View, depth int)) {
	if len(t) == 0 {
		return
	}
	depths := t.Depths()
	stack := []int{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(&t[id], depths[id])

		children := t[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Outline renders the tree as an indented text listing, one view per line.
// Labels wider than maxLabel terminal cells are truncated; maxLabel <= 0
// disables truncation.
func (t Tree) Outline(maxLabel int) string {
	var b strings.Builder
	t.walk(func(v *View, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "#%d %s", v.TempID, truncateLabel(v.Label(), maxLabel))
		if v.Bounds != nil {
			fmt.Fprintf(&b, " %s", v.Bounds)
		}
		if v.Clickable {
			b.WriteString(" [clickable]")
		}
		b.WriteByte('\n')
	})
	return b.String()
}

// Markdown renders the tree as a nested markdown list.
func (t Tree) Markdown() string {
	var b strings.Builder
	t.walk(func(v *View, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "- `#%d` %s", v.TempID, markdownEscaper.Replace(v.Label()))
		if v.Bounds != nil {
			fmt.Fprintf(&b, " `%s`", v.Bounds)
		}
		if v.Clickable {
			b.WriteString(" _clickable_")
		}
		b.WriteByte('\n')
	})
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	"\n", " ",
)

func truncateLabel(s string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
