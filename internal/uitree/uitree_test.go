package uitree

import (
	"testing"
)

const recentsXML = `UI hierchary dumped to: /data/local/tmp/view.xml
<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.launcher3"
        content-desc="" checkable="false" checked="false" clickable="false" enabled="true"
        scrollable="false" long-clickable="false" selected="false" bounds="[0,0][1080,1920]">
    <node index="0" text="" resource-id="com.android.launcher3:id/overview_panel" class="androidx.recyclerview.widget.RecyclerView"
          package="com.android.launcher3" content-desc="" checkable="false" checked="false" clickable="false"
          enabled="true" scrollable="true" long-clickable="false" selected="false" bounds="[0,200][1080,1600]">
      <node index="0" text="Maps" class="android.widget.TextView" package="com.android.launcher3"
            clickable="false" scrollable="false" bounds="[100,300][500,350]" />
    </node>
    <node index="1" text="" resource-id="com.android.launcher3:id/clear_all" class="android.widget.Button"
          package="com.android.launcher3" content-desc="" clickable="true" enabled="true"
          scrollable="false" bounds="[390,1700][690,1800]">
      <node index="0" text="Clear all" class="android.widget.TextView" package="com.android.launcher3"
            clickable="false" scrollable="false" bounds="[420,1720][660,1780]" />
    </node>
    <node index="2" text="" class="android.widget.LinearLayout" package="com.android.launcher3"
          clickable="false" scrollable="true" bounds="[0,1600][1080,1700]">
      <node index="0" text="" content-desc="CLOSE ALL apps" class="android.widget.ImageButton"
            package="com.android.launcher3" clickable="true" scrollable="false" bounds="[0,1600][200,1700]" />
    </node>
  </node>
</hierarchy>
adb: trailing noise`

func parseRecents(t *testing.T) *Node {
	t.Helper()
	h, err := Parse(recentsXML)
	if err != nil {
		t.Fatalf("Failed to parse dump: %v", err)
	}
	root := h.Root()
	if root == nil {
		t.Fatal("Expected a root node")
	}
	return root
}

func TestParseStripsNoiseAndLinksParents(t *testing.T) {
	root := parseRecents(t)

	if root.Class != "android.widget.FrameLayout" {
		t.Errorf("Class: expected FrameLayout, got %q", root.Class)
	}
	if root.Parent() != nil {
		t.Error("Root should have no parent")
	}
	if len(root.Nodes) != 3 {
		t.Fatalf("Expected 3 children, got %d", len(root.Nodes))
	}
	child := &root.Nodes[1]
	if child.Parent() != root {
		t.Error("Child parent link not set")
	}
	if !child.Clickable {
		t.Error("Expected clear_all button to be clickable")
	}
	if !root.Nodes[0].Scrollable {
		t.Error("Expected overview panel to be scrollable")
	}
	grandchild := &child.Nodes[0]
	if grandchild.Parent() != child {
		t.Error("Grandchild parent link not set")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("ERROR: null root node returned by UiTestAutomationBridge."); err == nil {
		t.Error("Expected error for output without a hierarchy")
	}
}

func TestParseEscapesStrayAmpersands(t *testing.T) {
	raw := `<?xml version="1.0"?><hierarchy><node text="Tom & Jerry" clickable="true" bounds="[0,0][10,10]" /></hierarchy>`
	h, err := Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := h.Root().Text; got != "Tom & Jerry" {
		t.Errorf("Expected unescaped text, got %q", got)
	}
}

func TestRootMergesMultipleWindows(t *testing.T) {
	raw := `<?xml version="1.0"?><hierarchy>
<node text="status" package="com.android.systemui" bounds="[0,0][1080,60]" />
<node text="app" package="com.example" bounds="[0,60][1080,1920]"><node text="inner" clickable="true" bounds="[0,60][10,70]" /></node>
</hierarchy>`
	h, err := Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(h.Windows()) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(h.Windows()))
	}
	root := h.Root()
	if len(root.Nodes) != 2 {
		t.Fatalf("Expected container with 2 children, got %d", len(root.Nodes))
	}
	inner := FindNodeByText(root, []string{"inner"})
	if inner == nil || inner.Parent() == nil || inner.Parent().Text != "app" {
		t.Error("Expected parent links to survive the merge")
	}
}

func TestActiveWindowPrefersFocusedWindow(t *testing.T) {
	raw := `<?xml version="1.0"?><hierarchy>
<node text="app" package="com.example" bounds="[0,60][1080,1920]"><node text="field" focused="true" bounds="[0,60][10,70]" /></node>
<node text="status" package="com.android.systemui" bounds="[0,0][1080,60]" />
</hierarchy>`
	h, err := Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if w := h.ActiveWindow(); w == nil || w.Text != "app" {
		t.Errorf("Expected the focused app window, got %v", w)
	}

	unfocused, err := Parse(`<hierarchy><node text="a" bounds="[0,0][1,1]" /><node text="b" bounds="[0,0][1,1]" /></hierarchy>`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if w := unfocused.ActiveWindow(); w == nil || len(w.Nodes) != 2 {
		t.Errorf("Expected the merged root without focus, got %v", w)
	}
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		input   string
		want    Rect
		wantErr bool
	}{
		{"[0,0][1080,1920]", Rect{0, 0, 1080, 1920}, false},
		{"[390,1700][690,1800]", Rect{390, 1700, 690, 1800}, false},
		{"invalid", Rect{}, true},
		{"", Rect{}, true},
	}

	for _, tt := range tests {
		got, err := ParseBounds(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBounds(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBounds(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestRectCenter(t *testing.T) {
	r := Rect{390, 1700, 690, 1800}
	x, y := r.Center()
	if x != 540 || y != 1750 {
		t.Errorf("Expected center (540,1750), got (%d,%d)", x, y)
	}
	if r.Empty() {
		t.Error("Expected non-empty rect")
	}
	if !(Rect{5, 5, 5, 10}).Empty() {
		t.Error("Expected zero-width rect to be empty")
	}
}

func TestFindNodeByTextResolvesClickableAncestor(t *testing.T) {
	root := parseRecents(t)

	node := FindNodeByText(root, []string{"Clear all"})
	if node == nil {
		t.Fatal("Expected to find Clear all")
	}
	if node.ResourceID != "com.android.launcher3:id/clear_all" {
		t.Errorf("Expected clickable button parent, got %s", node)
	}
	if !node.Clickable {
		t.Error("Result must be clickable")
	}
}

func TestFindNodeByTextCandidateOrder(t *testing.T) {
	root := parseRecents(t)

	// "Close all" matches the content description case-insensitively and is
	// listed first, so it wins even though "Clear all" appears earlier in the tree.
	node := FindNodeByText(root, []string{"모두 닫기", "Close all", "모두 지우기", "Clear all"})
	if node == nil {
		t.Fatal("Expected a match")
	}
	if node.ContentDesc != "CLOSE ALL apps" {
		t.Errorf("Expected the Close all button, got %s", node)
	}
}

func TestFindNodeByTextSkipsUnclickableMatches(t *testing.T) {
	root := parseRecents(t)

	// "Maps" has no clickable ancestor
	if node := FindNodeByText(root, []string{"Maps"}); node != nil {
		t.Errorf("Expected nil for unclickable match, got %s", node)
	}
	if node := FindNodeByText(root, []string{"Maps", "Clear all"}); node == nil || node.ResourceID != "com.android.launcher3:id/clear_all" {
		t.Error("Expected fallback to the next candidate")
	}
	if node := FindNodeByText(root, []string{"nothing here"}); node != nil {
		t.Error("Expected nil when nothing matches")
	}
	if node := FindNodeByText(nil, []string{"Clear all"}); node != nil {
		t.Error("Expected nil for a nil root")
	}
}

func TestCollectScrollableDepthFirst(t *testing.T) {
	root := parseRecents(t)

	nodes := CollectScrollable(root)
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 scrollable nodes, got %d", len(nodes))
	}
	if nodes[0].ResourceID != "com.android.launcher3:id/overview_panel" {
		t.Errorf("Expected overview panel first, got %s", nodes[0])
	}
	if nodes[1].Class != "android.widget.LinearLayout" {
		t.Errorf("Expected LinearLayout second, got %s", nodes[1])
	}
}
