package view

import (
	"maps"

	"github.com/hpungsan/hdcview/internal/errors"
)

// bundleKey is the raw attribute children inherit from their parent.
const bundleKey = "bundleName"

// Tree is a flattened view hierarchy. Index i holds the view with TempID i;
// the root is at index 0.
type Tree []View

// queued is a raw node waiting for an id, tagged with its parent's id.
type queued struct {
	node   RawNode
	parent int
}

// Build flattens a raw dump breadth-first. Ids are assigned in dequeue order
// starting at 0, siblings keep their dump order, and a child without its own
// bundleName inherits its parent's. Any malformed bounds aborts the build.
func Build(root RawNode) (Tree, error) {
	queue := []queued{{node: root, parent: -1}}
	var tree Tree

	for head := 0; head < len(queue); head++ {
		item := queue[head]
		queue[head] = queued{}

		v, err := item.node.normalize()
		if err != nil {
			return nil, err
		}
		v.TempID = len(tree)
		v.Parent = item.parent
		v.ChildCount = len(item.node.Children)
		tree = append(tree, v)

		bundle, hasBundle := item.node.Attributes[bundleKey]
		for _, child := range item.node.Children {
			if hasBundle {
				if _, own := child.Attributes[bundleKey]; !own {
					attrs := maps.Clone(child.Attributes)
					if attrs == nil {
						attrs = make(map[string]string, 1)
					}
					attrs[bundleKey] = bundle
					child.Attributes = attrs
				}
			}
			queue = append(queue, queued{node: child, parent: v.TempID})
		}
	}

	if err := LinkChildren(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// LinkChildren rebuilds every view's Children list from the Parent links.
// A view whose id does not match its index, or whose parent is missing or
// not strictly before it, is an INTERNAL_CONSISTENCY error.
func LinkChildren(tree Tree) error {
	for i := range tree {
		tree[i].Children = []int{}
	}

	for i := range tree {
		v := &tree[i]
		if v.TempID != i {
			return errors.NewInternalConsistency(v.TempID, v.Parent)
		}
		if i == 0 {
			if v.Parent != -1 {
				return errors.NewInternalConsistency(v.TempID, v.Parent)
			}
			continue
		}
		if v.Parent < 0 || v.Parent >= i || tree[v.Parent].TempID != v.Parent {
			return errors.NewInternalConsistency(v.TempID, v.Parent)
		}
		parent := &tree[v.Parent]
		parent.Children = append(parent.Children, v.TempID)
	}

	return nil
}

// Find returns the view with the given id.
func (t Tree) Find(tempID int) (*View, bool) {
	if tempID < 0 || tempID >= len(t) {
		return nil, false
	}
	return &t[tempID], true
}

// Depths returns each view's distance from the root.
func (t Tree) Depths() []int {
	depths := make([]int, len(t))
	for i := 1; i < len(t); i++ {
		depths[i] = depths[t[i].Parent] + 1
	}
	return depths
}
