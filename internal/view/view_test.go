package view

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/geometry"
)

const sampleDump = `{
  "attributes": {"type": "root", "bundleName": "com.example.app", "bounds": "[0,0][1080,2340]", "visible": "true"},
  "children": [
    {
      "attributes": {"type": "Column", "bounds": "[0,0][1080,1000]"},
      "children": [
        {"attributes": {"type": "Text", "text": "Hello", "bounds": "[10,20][30,40]"}, "children": []},
        {"attributes": {"type": "Button", "bundleName": "com.other", "clickable": "true", "bounds": "[0,500][1080,600]"}, "children": []}
      ]
    },
    {
      "attributes": {"type": "Image", "bounds": "[0,1000][1080,2340]", "longClickable": "false"},
      "children": [
        {"attributes": {"type": "Text", "text": "Deep", "bounds": "[0,1000][100,1100]"}, "children": []}
      ]
    }
  ]
}`

func buildSample(t *testing.T) Tree {
	t.Helper()
	root, err := Decode(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	tree, err := Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tree
}

func TestNormalize_Flags(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"True", true},
		{"false", false},
		{"False", false},
		{"TRUE", false},
		{"1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Normalize(map[string]string{
				"visible": tt.raw, "checkable": tt.raw, "enabled": tt.raw, "clickable": tt.raw,
				"scrollable": tt.raw, "selected": tt.raw, "focused": tt.raw, "checked": tt.raw,
			})
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			for name, got := range map[string]bool{
				"visible": v.Visible, "checkable": v.Checkable, "enabled": v.Enabled, "clickable": v.Clickable,
				"scrollable": v.Scrollable, "selected": v.Selected, "focused": v.Focused, "checked": v.Checked,
			} {
				if got != tt.want {
					t.Errorf("%s = %v, want %v", name, got, tt.want)
				}
			}
		})
	}
}

func TestNormalize_MissingFlagsDefaultFalse(t *testing.T) {
	v, err := Normalize(map[string]string{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if v.Visible || v.Clickable || v.LongClickable {
		t.Errorf("flags should default to false: %+v", v)
	}
	if v.Bounds != nil || v.Size != "" {
		t.Errorf("Bounds/Size should be unset: %v %q", v.Bounds, v.Size)
	}
}

// longClickable uses plain truthiness while the other flags require a
// literal "true"; "false" therefore normalizes to true.
func TestNormalize_LongClickableTruthiness(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"false", true},
		{"0", true},
		{"", false},
	}

	for _, tt := range tests {
		v, err := Normalize(map[string]string{"longClickable": tt.raw})
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if v.LongClickable != tt.want {
			t.Errorf("longClickable %q -> %v, want %v", tt.raw, v.LongClickable, tt.want)
		}
		if _, ok := v.Attributes["longClickable"]; ok {
			t.Error("longClickable should not pass through")
		}
	}
}

func TestNormalize_RenamesAndPassthrough(t *testing.T) {
	v, err := Normalize(map[string]string{
		"bundleName":  "com.example.app",
		"description": "Settings",
		"type":        "Button",
		"bounds":      "[10,20][30,40]",
		"text":        "OK",
		"id":          "btn_ok",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if deref(v.Package) != "com.example.app" {
		t.Errorf("Package = %v", v.Package)
	}
	if deref(v.ContentDescription) != "Settings" {
		t.Errorf("ContentDescription = %v", v.ContentDescription)
	}
	if deref(v.Class) != "Button" {
		t.Errorf("Class = %v", v.Class)
	}
	if v.Bounds == nil || *v.Bounds != (geometry.Rect{Min: geometry.Point{X: 10, Y: 20}, Max: geometry.Point{X: 30, Y: 40}}) {
		t.Errorf("Bounds = %v", v.Bounds)
	}
	if v.Size != "20*20" {
		t.Errorf("Size = %q, want %q", v.Size, "20*20")
	}
	if len(v.Attributes) != 2 || v.Attributes["text"] != "OK" || v.Attributes["id"] != "btn_ok" {
		t.Errorf("Attributes = %v", v.Attributes)
	}
}

func TestNormalize_MalformedBounds(t *testing.T) {
	_, err := Normalize(map[string]string{"bounds": "[0,0][10]"})
	if !errors.Is(err, errors.ErrMalformedBounds) {
		t.Fatalf("error = %v, want MALFORMED_BOUNDS", err)
	}
}

func TestBuild_BreadthFirstOrder(t *testing.T) {
	tree := buildSample(t)

	wantClass := []string{"root", "Column", "Image", "Text", "Button", "Text"}
	wantParent := []int{-1, 0, 0, 1, 1, 2}
	wantChildren := [][]int{{1, 2}, {3, 4}, {5}, {}, {}, {}}

	if len(tree) != len(wantClass) {
		t.Fatalf("len(tree) = %d, want %d", len(tree), len(wantClass))
	}
	for i, v := range tree {
		if v.TempID != i {
			t.Errorf("tree[%d].TempID = %d", i, v.TempID)
		}
		if deref(v.Class) != wantClass[i] {
			t.Errorf("tree[%d].Class = %q, want %q", i, deref(v.Class), wantClass[i])
		}
		if v.Parent != wantParent[i] {
			t.Errorf("tree[%d].Parent = %d, want %d", i, v.Parent, wantParent[i])
		}
		if len(v.Children) != len(wantChildren[i]) {
			t.Errorf("tree[%d].Children = %v, want %v", i, v.Children, wantChildren[i])
			continue
		}
		for j := range v.Children {
			if v.Children[j] != wantChildren[i][j] {
				t.Errorf("tree[%d].Children = %v, want %v", i, v.Children, wantChildren[i])
			}
		}
		if v.ChildCount != len(wantChildren[i]) {
			t.Errorf("tree[%d].ChildCount = %d", i, v.ChildCount)
		}
	}

	if tree[3].Attr("text") != "Hello" || tree[5].Attr("text") != "Deep" {
		t.Errorf("text passthrough lost: %q %q", tree[3].Attr("text"), tree[5].Attr("text"))
	}
	if !tree[2].LongClickable {
		t.Error("Image longClickable \"false\" should normalize to true")
	}
}

func TestBuild_BundleInheritance(t *testing.T) {
	tree := buildSample(t)

	want := []string{"com.example.app", "com.example.app", "com.example.app", "com.example.app", "com.other", "com.example.app"}
	for i, v := range tree {
		if deref(v.Package) != want[i] {
			t.Errorf("tree[%d].Package = %q, want %q", i, deref(v.Package), want[i])
		}
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	child := RawNode{Attributes: map[string]string{"type": "Text"}}
	root := RawNode{
		Attributes: map[string]string{"bundleName": "com.example.app"},
		Children:   []RawNode{child},
	}

	if _, err := Build(root); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := child.Attributes["bundleName"]; ok {
		t.Error("Build() wrote bundleName into the caller's raw node")
	}
	if _, ok := root.Children[0].Attributes["bundleName"]; ok {
		t.Error("Build() wrote bundleName into the caller's raw child")
	}
}

func TestBuild_ChildWithoutAttributes(t *testing.T) {
	root := RawNode{
		Attributes: map[string]string{"bundleName": "com.example.app"},
		Children:   []RawNode{{}},
	}

	tree, err := Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if deref(tree[1].Package) != "com.example.app" {
		t.Errorf("Package = %v", tree[1].Package)
	}
}

func TestBuild_MalformedBoundsAbortsWholeTree(t *testing.T) {
	root := RawNode{
		Attributes: map[string]string{"bounds": "[0,0][10,10]"},
		Children: []RawNode{
			{Attributes: map[string]string{"bounds": "[0,0][5,5]"}},
			{
				Attributes: map[string]string{"bounds": "[0,0][5,5]"},
				Children:   []RawNode{{Attributes: map[string]string{"bounds": "broken"}}},
			},
		},
	}

	tree, err := Build(root)
	if !errors.Is(err, errors.ErrMalformedBounds) {
		t.Fatalf("error = %v, want MALFORMED_BOUNDS", err)
	}
	if tree != nil {
		t.Errorf("tree = %v, want nil", tree)
	}
}

func TestBuild_DeepChain(t *testing.T) {
	const depth = 5000
	root := RawNode{Attributes: map[string]string{"type": "leaf"}}
	for i := 0; i < depth; i++ {
		root = RawNode{Attributes: map[string]string{"type": "node"}, Children: []RawNode{root}}
	}

	tree, err := Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tree) != depth+1 {
		t.Fatalf("len(tree) = %d, want %d", len(tree), depth+1)
	}
	if deref(tree[depth].Class) != "leaf" {
		t.Errorf("last view class = %q", deref(tree[depth].Class))
	}
	if got := tree.Depths()[depth]; got != depth {
		t.Errorf("depth = %d, want %d", got, depth)
	}
}

func randomDump(r *rand.Rand, budget *int, depth int) RawNode {
	*budget--
	n := RawNode{Attributes: map[string]string{"type": "v"}}
	if depth > 6 {
		return n
	}
	for k := r.Intn(4); k > 0 && *budget > 0; k-- {
		n.Children = append(n.Children, randomDump(r, budget, depth+1))
	}
	return n
}

func countNodes(n RawNode) int {
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}

func TestBuild_TreeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		budget := 1 + r.Intn(200)
		root := randomDump(r, &budget, 0)
		n := countNodes(root)

		tree, err := Build(root)
		if err != nil {
			t.Fatalf("round %d: Build() error = %v", round, err)
		}
		if len(tree) != n {
			t.Fatalf("round %d: len(tree) = %d, want %d", round, len(tree), n)
		}
		if tree[0].Parent != -1 {
			t.Errorf("round %d: root parent = %d", round, tree[0].Parent)
		}

		for i, v := range tree {
			if v.TempID != i {
				t.Errorf("round %d: tree[%d].TempID = %d", round, i, v.TempID)
			}
			if len(v.Children) != v.ChildCount {
				t.Errorf("round %d: view %d has %d children, child_count %d", round, i, len(v.Children), v.ChildCount)
			}
			if i == 0 {
				continue
			}
			if v.Parent >= v.TempID {
				t.Errorf("round %d: view %d parent %d not before it", round, i, v.Parent)
			}
			seen := 0
			for _, c := range tree[v.Parent].Children {
				if c == v.TempID {
					seen++
				}
			}
			if seen != 1 {
				t.Errorf("round %d: view %d listed %d times under parent %d", round, i, seen, v.Parent)
			}
		}
	}
}

func TestLinkChildren_InconsistentParent(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
	}{
		{"parent after child", Tree{{TempID: 0, Parent: -1}, {TempID: 1, Parent: 2}, {TempID: 2, Parent: 0}}},
		{"parent out of range", Tree{{TempID: 0, Parent: -1}, {TempID: 1, Parent: 7}}},
		{"id does not match index", Tree{{TempID: 0, Parent: -1}, {TempID: 5, Parent: 0}}},
		{"orphan", Tree{{TempID: 0, Parent: -1}, {TempID: 1, Parent: -1}}},
		{"root with parent", Tree{{TempID: 0, Parent: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LinkChildren(tt.tree)
			if !errors.Is(err, errors.ErrInternalConsistency) {
				t.Errorf("error = %v, want INTERNAL_CONSISTENCY", err)
			}
		})
	}
}

func TestLinkChildren_Rebuilds(t *testing.T) {
	tree := Tree{
		{TempID: 0, Parent: -1, Children: []int{9, 9}},
		{TempID: 1, Parent: 0},
		{TempID: 2, Parent: 1},
	}
	if err := LinkChildren(tree); err != nil {
		t.Fatalf("LinkChildren() error = %v", err)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0] != 1 {
		t.Errorf("root children = %v", tree[0].Children)
	}
	if len(tree[2].Children) != 0 || tree[2].Children == nil {
		t.Errorf("leaf children = %#v, want empty slice", tree[2].Children)
	}
}

func TestView_Accessors(t *testing.T) {
	var empty View
	if empty.ClassName() != "" || empty.Description() != "" {
		t.Errorf("unset accessors = %q, %q", empty.ClassName(), empty.Description())
	}

	v, err := Normalize(map[string]string{"type": "Button", "description": "Settings"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if v.ClassName() != "Button" || v.Description() != "Settings" {
		t.Errorf("accessors = %q, %q", v.ClassName(), v.Description())
	}
}

func TestDecode_Scalars(t *testing.T) {
	root, err := Decode(strings.NewReader(`{"attributes": {"clickable": true, "zIndex": 3, "hint": null, "text": "café", "longClickable": false}, "children": null}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := map[string]string{"clickable": "true", "zIndex": "3", "hint": "", "text": "café", "longClickable": "false"}
	for key, value := range want {
		if root.Attributes[key] != value {
			t.Errorf("Attributes[%q] = %q, want %q", key, root.Attributes[key], value)
		}
	}

	tree, err := Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !tree[0].Clickable || tree[0].LongClickable {
		t.Errorf("clickable = %v, long_clickable = %v; want true, false", tree[0].Clickable, tree[0].LongClickable)
	}
}

func TestDecode_BareFalsyLongClickable(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{`false`, false},
		{`0`, false},
		{`0.0`, false},
		{`null`, false},
		{`[]`, false},
		{`{}`, false},
		{`true`, true},
		{`1`, true},
		{`"false"`, true},
		{`""`, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			root, err := Decode(strings.NewReader(`{"attributes": {"longClickable": ` + tt.value + `}}`))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			tree, err := Build(root)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if tree[0].LongClickable != tt.want {
				t.Errorf("longClickable %s -> %v, want %v", tt.value, tree[0].LongClickable, tt.want)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `<hierarchy/>`},
		{"array root", `[{"attributes": {}}]`},
		{"missing attributes", `{"children": []}`},
		{"child missing attributes", `{"attributes": {}, "children": [{"children": []}]}`},
		{"trailing data", `{"attributes": {}} {"attributes": {}}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("error = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestView_JSONFlattened(t *testing.T) {
	tree := buildSample(t)

	data, err := json.Marshal(tree[3])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["text"] != "Hello" {
		t.Errorf("text = %v", m["text"])
	}
	if m["class"] != "Text" {
		t.Errorf("class = %v", m["class"])
	}
	if m["size"] != "20*20" {
		t.Errorf("size = %v", m["size"])
	}
	if m["temp_id"] != float64(3) || m["parent"] != float64(1) {
		t.Errorf("linkage = %v %v", m["temp_id"], m["parent"])
	}
	if _, ok := m["Attributes"]; ok {
		t.Error("Attributes map should be flattened")
	}

	var back View
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal(View) error = %v", err)
	}
	if back.Attr("text") != "Hello" || deref(back.Class) != "Text" || back.Bounds == nil || *back.Bounds != *tree[3].Bounds {
		t.Errorf("round trip = %+v", back)
	}
}

func TestView_TypedFieldsWinOverRawKeys(t *testing.T) {
	v, err := Normalize(map[string]string{"type": "Button", "class": "raw-class", "temp_id": "x"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	v.TempID = 4

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["class"] != "Button" {
		t.Errorf("class = %v, want Button", m["class"])
	}
	if m["temp_id"] != float64(4) {
		t.Errorf("temp_id = %v, want 4", m["temp_id"])
	}
}

func TestTree_Outline(t *testing.T) {
	tree := buildSample(t)

	out := tree.Outline(0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := []string{
		"#0 root [0,0][1080,2340]",
		"  #1 Column [0,0][1080,1000]",
		`    #3 Text "Hello" [10,20][30,40]`,
		"    #4 Button [0,500][1080,600] [clickable]",
		"  #2 Image [0,1000][1080,2340]",
		`    #5 Text "Deep" [0,1000][100,1100]`,
	}
	if len(lines) != len(want) {
		t.Fatalf("Outline() =\n%s", out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTree_OutlineTruncatesWideLabels(t *testing.T) {
	tree := Tree{{TempID: 0, Parent: -1, Children: []int{}, Class: ptr("Text"), Attributes: map[string]string{"text": "設定を開いてください"}}}

	out := tree.Outline(10)
	if !strings.HasPrefix(out, `#0 Text "...`) {
		t.Errorf("Outline() = %q, want truncated label", out)
	}
	if strings.Contains(out, "ください") {
		t.Errorf("Outline() = %q, label not truncated", out)
	}
}

func TestTree_Markdown(t *testing.T) {
	tree := Tree{
		{TempID: 0, Parent: -1, Children: []int{1}, Class: ptr("root")},
		{TempID: 1, Parent: 0, Children: []int{}, Class: ptr("Text"), Clickable: true, Attributes: map[string]string{"text": "*bold* <b>"}},
	}

	md := tree.Markdown()
	if !strings.Contains(md, "- `#0` root\n") {
		t.Errorf("Markdown() missing root line:\n%s", md)
	}
	if !strings.Contains(md, "  - `#1` Text \"\\*bold\\* \\<b\\>\" _clickable_\n") {
		t.Errorf("Markdown() did not escape label:\n%s", md)
	}
}

func TestTree_Find(t *testing.T) {
	tree := buildSample(t)

	if v, ok := tree.Find(4); !ok || deref(v.Class) != "Button" {
		t.Errorf("Find(4) = %v, %v", v, ok)
	}
	if _, ok := tree.Find(6); ok {
		t.Error("Find(6) should miss")
	}
	if _, ok := tree.Find(-1); ok {
		t.Error("Find(-1) should miss")
	}
}
