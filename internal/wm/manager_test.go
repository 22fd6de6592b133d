package wm

import (
	"fmt"
	"testing"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/layout"
	"github.com/tilde-wm/tilde/internal/navigation"
)

// fakeConn records every call the manager issues, standing in for the
// X server.
type fakeConn struct {
	windows  []xproto.Window
	outputs  []OutputInfo
	types    map[xproto.Window][]WindowType
	override map[xproto.Window]bool
	struts   map[xproto.Window]*geometry.Strut

	ops        []string
	configs    map[xproto.Window]geometry.Viewport
	mapped     map[xproto.Window]bool
	keyWindows []xproto.Window
	focused    xproto.Window
	noFocus    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		types:    map[xproto.Window][]WindowType{},
		override: map[xproto.Window]bool{},
		struts:   map[xproto.Window]*geometry.Strut{},
		configs:  map[xproto.Window]geometry.Viewport{},
		mapped:   map[xproto.Window]bool{},
	}
}

func (c *fakeConn) record(format string, args ...interface{}) {
	c.ops = append(c.ops, fmt.Sprintf(format, args...))
}

func (c *fakeConn) TopLevelWindows() ([]xproto.Window, error) { return c.windows, nil }
func (c *fakeConn) Outputs() ([]OutputInfo, error)            { return c.outputs, nil }

func (c *fakeConn) WindowTypes(w xproto.Window) []WindowType {
	if t, ok := c.types[w]; ok {
		return t
	}
	return []WindowType{TypeNormal}
}

func (c *fakeConn) OverrideRedirect(w xproto.Window) (bool, error) { return c.override[w], nil }
func (c *fakeConn) Strut(w xproto.Window) *geometry.Strut          { return c.struts[w] }

func (c *fakeConn) MapWindow(w xproto.Window) {
	c.record("map %d", w)
	c.mapped[w] = true
}

func (c *fakeConn) UnmapWindow(w xproto.Window) {
	c.record("unmap %d", w)
	delete(c.mapped, w)
}

func (c *fakeConn) ConfigureWindow(w xproto.Window, vp geometry.Viewport) {
	c.record("configure %d", w)
	c.configs[w] = vp
}

func (c *fakeConn) CloseWindow(w xproto.Window)   { c.record("close %d", w) }
func (c *fakeConn) EnableTracking(xproto.Window)  {}
func (c *fakeConn) DisableTracking(xproto.Window) {}
func (c *fakeConn) EnableKeyEvents(w xproto.Window) {
	c.keyWindows = append(c.keyWindows, w)
}

func (c *fakeConn) SetFocus(w xproto.Window) {
	c.focused = w
	c.noFocus = false
}

func (c *fakeConn) ClearFocus() {
	c.focused = 0
	c.noFocus = true
}

func (c *fakeConn) PublishDesktops([]string, int, []xproto.Window) {}
func (c *fakeConn) NextEvent() (Event, error)                      { return nil, nil }

func (c *fakeConn) placementOps() int {
	n := 0
	for _, op := range c.ops {
		var w int
		if _, err := fmt.Sscanf(op, "map %d", &w); err == nil {
			n++
			continue
		}
		if _, err := fmt.Sscanf(op, "unmap %d", &w); err == nil {
			n++
			continue
		}
		if _, err := fmt.Sscanf(op, "configure %d", &w); err == nil {
			n++
		}
	}
	return n
}

func testLayouts() []layout.Layout {
	return []layout.Layout{
		layout.NewStackLayout("stack", 0),
		layout.NewTiledLayout("tiled", 2),
		layout.NewThreeColumn("three-column", 2),
	}
}

func testGroups() []GroupConfig {
	return []GroupConfig{
		{Name: "web", Layout: "tiled"},
		{Name: "term", Layout: "three-column"},
		{Name: "misc", Layout: "stack"},
	}
}

func singleOutput() []OutputInfo {
	return []OutputInfo{{ID: 1, Geom: geometry.Viewport{X: 0, Y: 0, Width: 1000, Height: 500}}}
}

func newTestWM(t *testing.T, conn *fakeConn) *WindowManager {
	t.Helper()
	manager, err := New(conn, testLayouts(), testGroups(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return manager
}

func checkInjective(t *testing.T, manager *WindowManager) {
	t.Helper()
	seen := map[int]randr.Crtc{}
	for _, o := range manager.outputs.Values() {
		if prev, dup := seen[o.Group]; dup {
			t.Fatalf("outputs %d and %d both show group %d", prev, o.ID, o.Group)
		}
		seen[o.Group] = o.ID
	}
}

func TestStartupAssignsDistinctGroupsPerOutput(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = []OutputInfo{
		{ID: 1, Geom: geometry.Viewport{Width: 1920, Height: 1080}},
		{ID: 2, Geom: geometry.Viewport{X: 1920, Width: 1280, Height: 1024}},
		{ID: 3}, // disabled, zero size
	}
	manager := newTestWM(t, conn)

	if manager.outputs.Len() != 2 {
		t.Fatalf("expected 2 active outputs, got %d", manager.outputs.Len())
	}
	checkInjective(t, manager)
	if manager.currentOutput().ID != 1 {
		t.Fatalf("expected first output current, got %d", manager.currentOutput().ID)
	}
}

func TestManageThreeWindowsThreeColumn(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	if err := manager.SwitchGroup("term"); err != nil {
		t.Fatalf("SwitchGroup: %v", err)
	}

	for w := xproto.Window(10); w <= 12; w++ {
		manager.HandleEvent(MapRequestEvent{Window: w})
	}

	colWidth := (1000 - 4) / 3
	for i, w := range []xproto.Window{10, 11} {
		got, ok := conn.configs[w]
		if !ok {
			t.Fatalf("window %d never configured", w)
		}
		if got.Width != colWidth || got.Height != 500 {
			t.Fatalf("window %d got %+v, expected %dx500 column %d", w, got, colWidth, i)
		}
	}
	last := conn.configs[12]
	if last.Width != 1000-4-2*colWidth {
		t.Fatalf("window 12 width %d, expected the remainder %d", last.Width, 1000-4-2*colWidth)
	}
	for w := xproto.Window(10); w <= 12; w++ {
		if !conn.mapped[w] {
			t.Fatalf("window %d not mapped", w)
		}
	}
	if conn.focused != 12 {
		t.Fatalf("expected input focus on window 12, got %d", conn.focused)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})
	manager.HandleEvent(MapRequestEvent{Window: 11})

	before := conn.placementOps()
	manager.reconcile()
	if got := conn.placementOps(); got != before {
		t.Fatalf("second reconcile issued %d extra placement ops", got-before)
	}
}

func TestUnmanageFocusesPredecessor(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	for w := xproto.Window(10); w <= 12; w++ {
		manager.HandleEvent(MapRequestEvent{Window: w})
	}
	manager.RotateFocusInGroup() // 12 -> 10
	if conn.focused != 10 {
		t.Fatalf("expected focus to wrap to window 10, got %d", conn.focused)
	}

	manager.HandleEvent(DestroyEvent{Window: 10})
	// No predecessor: the successor takes over.
	if conn.focused != 11 {
		t.Fatalf("expected focus on successor 11, got %d", conn.focused)
	}

	manager.HandleEvent(DestroyEvent{Window: 12})
	if conn.focused != 11 {
		t.Fatalf("expected focus to stay on 11, got %d", conn.focused)
	}

	manager.HandleEvent(DestroyEvent{Window: 11})
	if !conn.noFocus {
		t.Fatalf("expected focus cleared once the group emptied")
	}
}

func TestManageAlreadyManagedWindowIsNoop(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})

	if manager.windows.Len() != 1 {
		t.Fatalf("expected 1 managed window, got %d", manager.windows.Len())
	}
	manager.manageWindow(10)
	if manager.windows.Len() != 1 {
		t.Fatalf("window duplicated by double manage: %d records", manager.windows.Len())
	}
}

func TestTransientWindowsAreLeftUnmanaged(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	conn.types[20] = []WindowType{TypeNotification}
	conn.types[21] = []WindowType{TypeNormal}
	conn.override[21] = true
	manager := newTestWM(t, conn)

	manager.HandleEvent(MapRequestEvent{Window: 20})
	manager.HandleEvent(MapRequestEvent{Window: 21})
	if manager.windows.Len() != 0 {
		t.Fatalf("expected no managed windows, got %d", manager.windows.Len())
	}
}

func TestDockShrinksViewport(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	conn.types[30] = []WindowType{TypeDock}
	conn.struts[30] = &geometry.Strut{Top: 20, TopStartX: 0, TopEndX: 999}
	manager := newTestWM(t, conn)

	manager.HandleEvent(MapRequestEvent{Window: 30})
	if !conn.mapped[30] {
		t.Fatalf("dock window should be mapped immediately")
	}
	if manager.windows.Len() != 0 {
		t.Fatalf("dock window must not join a group")
	}

	manager.HandleEvent(MapRequestEvent{Window: 10})
	got := conn.configs[10]
	if got.Y != 22 || got.Height != 500-20-4 {
		t.Fatalf("expected window below the dock strut, got %+v", got)
	}

	// Removing the dock gives the space back.
	manager.HandleEvent(DestroyEvent{Window: 30})
	got = conn.configs[10]
	if got.Y != 2 || got.Height != 500-4 {
		t.Fatalf("expected full height after dock removal, got %+v", got)
	}
}

func TestGroupNavigationBoundaries(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)

	manager.PrevGroup() // already at the first group
	if manager.currentOutput().Group != 0 {
		t.Fatalf("PrevGroup at the first group moved to %d", manager.currentOutput().Group)
	}
	manager.NextGroup()
	manager.NextGroup()
	if got := manager.currentOutput().Group; got != 2 {
		t.Fatalf("expected group 2, got %d", got)
	}
	manager.NextGroup() // already at the last group
	if got := manager.currentOutput().Group; got != 2 {
		t.Fatalf("NextGroup at the last group moved to %d", got)
	}
}

func TestAssignmentsStayInjective(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = []OutputInfo{
		{ID: 1, Geom: geometry.Viewport{Width: 1920, Height: 1080}},
		{ID: 2, Geom: geometry.Viewport{X: 1920, Width: 1280, Height: 1024}},
	}
	manager := newTestWM(t, conn)

	// Output 2 shows group "term"; pulling it onto output 1 must swap.
	if err := manager.SwitchGroup("term"); err != nil {
		t.Fatalf("SwitchGroup: %v", err)
	}
	checkInjective(t, manager)
	if manager.currentOutput().Group != 1 {
		t.Fatalf("expected current output on group 1, got %d", manager.currentOutput().Group)
	}

	manager.RotateOutput()
	checkInjective(t, manager)
	if manager.currentOutput().ID != 2 {
		t.Fatalf("expected output 2 current after rotate, got %d", manager.currentOutput().ID)
	}

	manager.NextGroup()
	checkInjective(t, manager)

	// Hot-plug a third output and remove the first.
	manager.HandleEvent(OutputChangeEvent{Output: 3, Geom: geometry.Viewport{Y: 1080, Width: 800, Height: 600}})
	checkInjective(t, manager)
	if manager.outputs.Len() != 3 {
		t.Fatalf("expected 3 outputs, got %d", manager.outputs.Len())
	}
	if manager.currentOutput().ID != 2 {
		t.Fatalf("hot-plug stole the current output")
	}

	manager.HandleEvent(OutputChangeEvent{Output: 2})
	checkInjective(t, manager)
	if manager.outputs.Len() != 2 {
		t.Fatalf("expected 2 outputs after removal, got %d", manager.outputs.Len())
	}
	if manager.currentOutput().ID == 2 {
		t.Fatalf("removed output is still current")
	}

	manager.RotateOutput()
	checkInjective(t, manager)
}

func TestCommandsSurviveLastOutputRemoval(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})

	manager.HandleEvent(OutputChangeEvent{Output: 1})
	if !manager.outputs.Empty() {
		t.Fatalf("expected no outputs after removal, got %d", manager.outputs.Len())
	}

	// Bound commands keep arriving while no output is connected; every
	// one must be a quiet no-op.
	manager.NextGroup()
	manager.PrevGroup()
	if err := manager.SwitchGroup("term"); err == nil {
		t.Fatalf("expected SwitchGroup to fail without outputs")
	}
	manager.MoveFocusedToNextGroup()
	manager.MoveFocusedToPrevGroup()
	manager.MoveFocusedToGroup("misc")
	manager.RotateFocusInGroup()
	manager.SwapWithNextInGroup()
	manager.SwapWithPreviousInGroup()
	manager.RotateOutput()
	manager.CycleLayout()
	manager.CloseFocused()
	manager.FocusInDirection(navigation.Center{}, navigation.Left)
	manager.SwapInDirection(navigation.Line{}, navigation.Right)

	if rec, ok := manager.findWindow(10); !ok || rec.Group != 0 {
		t.Fatalf("expected window 10 untouched in group 0, got %+v (ok=%v)", rec, ok)
	}

	// Plugging an output back in resumes normal service.
	manager.HandleEvent(OutputChangeEvent{Output: 2, Geom: geometry.Viewport{Width: 1000, Height: 500}})
	if manager.currentOutput().ID != 2 {
		t.Fatalf("expected the new output current, got %d", manager.currentOutput().ID)
	}
	if !conn.mapped[10] {
		t.Fatalf("expected window 10 back on screen")
	}
}

func TestDirectionalTiesBreakByStackOrder(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = []OutputInfo{{ID: 1, Geom: geometry.Viewport{Width: 900, Height: 600}}}
	layouts := []layout.Layout{layout.NewThreeColumn("cols", 0)}
	groups := []GroupConfig{{Name: "only", Layout: "cols"}}
	manager, err := New(conn, layouts, groups, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for w := xproto.Window(10); w <= 14; w++ {
		manager.HandleEvent(MapRequestEvent{Window: w})
	}

	// Columns hold {10,11}, {12,13}, {14}. From window 14's center the
	// middle column's two windows are exactly equidistant going left;
	// the earlier window in stack order must win, every time.
	for i := 0; i < 5; i++ {
		manager.groups[0].setFocus(14)
		manager.reconcile()
		manager.FocusInDirection(navigation.Center{}, navigation.Left)
		if conn.focused != 12 {
			t.Fatalf("expected the tie to resolve to window 12, got %d", conn.focused)
		}
	}
}

func TestDockWindowsGetKeyGrabs(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	conn.types[30] = []WindowType{TypeDock}
	manager := newTestWM(t, conn)

	manager.HandleEvent(MapRequestEvent{Window: 30})
	found := false
	for _, w := range conn.keyWindows {
		if w == 30 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected key grabs on the dock window, grabbed: %v", conn.keyWindows)
	}
}

func TestOutputGeometryUpdateInPlace(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})

	manager.HandleEvent(OutputChangeEvent{Output: 1, Geom: geometry.Viewport{Width: 2000, Height: 800}})
	if manager.outputs.Len() != 1 {
		t.Fatalf("geometry change duplicated the output")
	}
	got := conn.configs[10]
	if got.Width != 2000-4 {
		t.Fatalf("expected window resized to the new geometry, got %+v", got)
	}
}

func TestMoveFocusedToNextGroupFollowsWindow(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})
	manager.HandleEvent(MapRequestEvent{Window: 11})

	manager.MoveFocusedToNextGroup()
	if got := manager.currentOutput().Group; got != 1 {
		t.Fatalf("expected current output to follow to group 1, got %d", got)
	}
	rec, ok := manager.findWindow(11)
	if !ok || rec.Group != 1 {
		t.Fatalf("expected window 11 in group 1, got %+v (ok=%v)", rec, ok)
	}
	if f, ok := manager.groups[0].Focused(); !ok || f != 10 {
		t.Fatalf("expected group 0 to focus remaining window 10, got %d (ok=%v)", f, ok)
	}
	if f, ok := manager.groups[1].Focused(); !ok || f != 11 {
		t.Fatalf("expected group 1 to focus window 11, got %d (ok=%v)", f, ok)
	}
}

func TestMoveFocusedToMissingGroupLosesWindow(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})

	manager.MoveFocusedToGroup("nowhere")
	if manager.windows.Len() != 0 {
		t.Fatalf("expected the window to leave tiling, got %d records", manager.windows.Len())
	}
	if _, ok := manager.groups[0].Focused(); ok {
		t.Fatalf("expected group 0 to lose focus")
	}
}

func TestSwapWithNextInGroupTradesPlaces(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	for w := xproto.Window(10); w <= 12; w++ {
		manager.HandleEvent(MapRequestEvent{Window: w})
	}
	manager.RotateFocusInGroup() // focus 10

	manager.SwapWithNextInGroup()
	if got := manager.groupWindows(0); got[0] != 11 || got[1] != 10 || got[2] != 12 {
		t.Fatalf("expected order [11 10 12], got %v", got)
	}
	// Focus stays on the moved window.
	if f, _ := manager.groups[0].Focused(); f != 10 {
		t.Fatalf("expected focus to stay on 10, got %d", f)
	}

	manager.SwapWithPreviousInGroup()
	if got := manager.groupWindows(0); got[0] != 10 || got[1] != 11 {
		t.Fatalf("expected original order restored, got %v", got)
	}

	manager.SwapWithPreviousInGroup() // at the front: no-op
	if got := manager.groupWindows(0); got[0] != 10 {
		t.Fatalf("expected boundary no-op, got %v", got)
	}
}

func TestFocusInDirection(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	for w := xproto.Window(10); w <= 12; w++ {
		manager.HandleEvent(MapRequestEvent{Window: w})
	}
	// Tiled: 10, 11, 12 left to right; 12 is focused.
	manager.FocusInDirection(navigation.Line{}, navigation.Left)
	if conn.focused != 11 {
		t.Fatalf("expected focus on the middle window, got %d", conn.focused)
	}
	manager.FocusInDirection(navigation.Center{}, navigation.Left)
	if conn.focused != 10 {
		t.Fatalf("expected focus on the leftmost window, got %d", conn.focused)
	}
	manager.FocusInDirection(navigation.Center{}, navigation.Left)
	if conn.focused != 10 {
		t.Fatalf("expected no move past the leftmost window, got %d", conn.focused)
	}
}

func TestSwapInDirection(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	for w := xproto.Window(10); w <= 12; w++ {
		manager.HandleEvent(MapRequestEvent{Window: w})
	}
	manager.SwapInDirection(navigation.Line{}, navigation.Left)
	if got := manager.groupWindows(0); got[0] != 10 || got[1] != 12 || got[2] != 11 {
		t.Fatalf("expected order [10 12 11], got %v", got)
	}
}

func TestCloseFocusedDoesNotRemoveRecord(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})

	manager.CloseFocused()
	if manager.windows.Len() != 1 {
		t.Fatalf("close must not drop the record before the server confirms")
	}
	found := false
	for _, op := range conn.ops {
		if op == "close 10" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a close request for window 10, ops: %v", conn.ops)
	}
}

func TestCycleLayoutChangesPlacements(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})
	manager.HandleEvent(MapRequestEvent{Window: 11})

	// Group "web" uses tiled; cycling twice lands on stack, which shows
	// only the focused window.
	manager.CycleLayout()
	manager.CycleLayout()
	if conn.mapped[10] {
		t.Fatalf("expected unfocused window hidden under the stack layout")
	}
	if !conn.mapped[11] {
		t.Fatalf("expected focused window visible under the stack layout")
	}
}

func TestEnterFocusesWindow(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	manager := newTestWM(t, conn)
	manager.HandleEvent(MapRequestEvent{Window: 10})
	manager.HandleEvent(MapRequestEvent{Window: 11})

	manager.HandleEvent(EnterEvent{Window: 10})
	if conn.focused != 10 {
		t.Fatalf("expected pointer entry to focus window 10, got %d", conn.focused)
	}
}

func TestKeyDispatchRunsBoundCommand(t *testing.T) {
	conn := newFakeConn()
	conn.outputs = singleOutput()
	ran := false
	keys := map[string]Command{
		"mod1-x": {Name: "test", Run: func(*WindowManager) error {
			ran = true
			return nil
		}},
	}
	manager, err := New(conn, testLayouts(), testGroups(), keys)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	manager.HandleEvent(KeyEvent{Combo: "mod1-x"})
	if !ran {
		t.Fatalf("expected bound command to run")
	}
	manager.HandleEvent(KeyEvent{Combo: "mod1-unbound"})
}
