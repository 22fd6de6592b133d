// Package wm contains the window manager core: workspace groups, the
// output assignment table and the reconciliation loop that turns layout
// decisions into map/unmap/configure calls.
package wm

import (
	"os/exec"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/layout"
	"github.com/tilde-wm/tilde/internal/navigation"
	"github.com/tilde-wm/tilde/internal/stack"
)

// Window is one managed, non-dock window and the group it belongs to.
// A window belongs to exactly one group at all times.
type Window struct {
	ID    xproto.Window
	Group int
}

// Output is one active display output and the group it shows. No two
// outputs ever show the same group; assignments swap instead.
type Output struct {
	ID    randr.Crtc
	Geom  geometry.Viewport
	Group int
}

// GroupConfig names a group and its default layout.
type GroupConfig struct {
	Name   string
	Layout string
}

// WindowManager owns all window-manager state: the groups, the flat
// ordered list of managed windows, the outputs (whose focused element
// is the current output), the dock registry and the placements applied
// during the previous reconciliation. All mutation happens on the
// event-loop goroutine.
type WindowManager struct {
	conn    Connection
	keys    map[string]Command
	layouts []layout.Layout
	groups  []*Group
	windows *stack.Stack[Window]
	outputs *stack.Stack[Output]
	screen  geometry.Screen
	shown   map[xproto.Window]geometry.Viewport

	children []*exec.Cmd
	quit     bool
}

// New connects the manager to its collaborators and adopts the existing
// session: outputs are assigned groups in enumeration order, existing
// top-level windows are managed into the current group, and a first
// reconciliation brings the screen in line.
func New(conn Connection, layouts []layout.Layout, groupConfigs []GroupConfig, keys map[string]Command) (*WindowManager, error) {
	if len(layouts) == 0 {
		return nil, errors.New("at least one layout is required")
	}
	if len(groupConfigs) == 0 {
		return nil, errors.New("at least one group is required")
	}

	wm := &WindowManager{
		conn:    conn,
		keys:    keys,
		layouts: layouts,
		windows: stack.New[Window](),
		outputs: stack.New[Output](),
		shown:   map[xproto.Window]geometry.Viewport{},
	}
	for _, gc := range groupConfigs {
		wm.groups = append(wm.groups, NewGroup(gc.Name, gc.Layout, layouts))
	}

	infos, err := conn.Outputs()
	if err != nil {
		return nil, errors.Wrap(err, "enumerating outputs")
	}
	for _, info := range infos {
		if info.Geom.Width == 0 || info.Geom.Height == 0 {
			continue
		}
		group, ok := wm.lowestUnusedGroup()
		if !ok {
			return nil, errors.Errorf("more active outputs than configured groups (%d)", len(wm.groups))
		}
		wm.outputs.Push(Output{ID: info.ID, Geom: info.Geom, Group: group})
	}
	if wm.outputs.Empty() {
		return nil, errors.New("no active outputs")
	}
	// The first enumerated output starts out current.
	wm.outputs.Focus(func(o Output) bool { return true })

	existing, err := conn.TopLevelWindows()
	if err != nil {
		return nil, errors.Wrap(err, "listing existing windows")
	}
	for _, w := range existing {
		wm.manageWindow(w)
	}

	wm.reconcile()
	wm.publishDesktops()
	return wm, nil
}

// Run processes display-server events until Quit is invoked or the
// connection fails. Each event is fully handled, and the resulting
// placement diff fully applied, before the next event is read.
func (wm *WindowManager) Run() error {
	log.Info("entering event loop")
	for !wm.quit {
		ev, err := wm.conn.NextEvent()
		if err != nil {
			return errors.Wrap(err, "waiting for event")
		}
		wm.HandleEvent(ev)
		wm.reapChildren()
	}
	log.Info("event loop exiting")
	return nil
}

// Quit makes Run return after the current event.
func (wm *WindowManager) Quit() {
	wm.quit = true
}

// HandleEvent dispatches one event to its handler.
func (wm *WindowManager) HandleEvent(ev Event) {
	switch ev := ev.(type) {
	case MapRequestEvent:
		wm.onMapRequest(ev.Window)
	case UnmapEvent:
		// Unmaps performed by the manager itself are invisible thanks
		// to the tracking bracket; an application-initiated withdrawal
		// is resolved when the window is destroyed.
		log.WithField("window", ev.Window).Debug("ignoring unmap notify")
	case DestroyEvent:
		wm.unmanageWindow(ev.Window)
	case KeyEvent:
		wm.onKeyPress(ev.Combo)
	case EnterEvent:
		wm.onEnter(ev.Window)
	case OutputChangeEvent:
		wm.onOutputChange(ev)
	}
}

func (wm *WindowManager) onMapRequest(w xproto.Window) {
	if !wm.isManaged(w) {
		wm.manageWindow(w)
		return
	}
	if rec, ok := wm.findWindow(w); ok {
		if _, visible := wm.outputShowingGroup(rec.Group); visible {
			// Misbehaving applications re-map mapped windows to demand
			// attention; give them focus and log it.
			log.WithField("window", w).Info("already-mapped window asked to be mapped, focusing")
			wm.groups[rec.Group].setFocus(w)
			wm.reconcile()
		}
	}
}

func (wm *WindowManager) onKeyPress(combo string) {
	cmd, ok := wm.keys[combo]
	if !ok {
		return
	}
	if err := cmd.Run(wm); err != nil {
		log.WithField("key", combo).WithError(err).Errorf("command %s failed", cmd.Name)
	}
}

func (wm *WindowManager) onEnter(w xproto.Window) {
	rec, ok := wm.findWindow(w)
	if !ok {
		return
	}
	if _, visible := wm.outputShowingGroup(rec.Group); !visible {
		return
	}
	wm.outputs.Focus(func(o Output) bool { return o.Group == rec.Group })
	wm.groups[rec.Group].setFocus(w)
	wm.reconcile()
}

// manageWindow classifies a new window and takes it under management.
// Docks are mapped immediately and only shrink the usable viewports;
// transient surfaces (notifications, tooltips, utility windows and
// override-redirect windows) are left alone; everything else joins the
// current group and is focused.
func (wm *WindowManager) manageWindow(w xproto.Window) {
	log.WithField("window", w).Debug("managing window")
	if wm.isManaged(w) {
		log.WithField("window", w).Error("asked to manage an already-managed window")
		return
	}

	// Keys are grabbed on every surveyed window, docks included, so
	// bindings fire with the pointer over a bar.
	wm.conn.EnableKeyEvents(w)

	types := wm.conn.WindowTypes(w)
	if hasType(types, TypeDock) {
		wm.conn.MapWindow(w)
		wm.screen.AddDock(w, wm.conn.Strut(w))
		wm.reconcile()
		return
	}

	if hasType(types, TypeNotification) || hasType(types, TypeTooltip) || hasType(types, TypeUtility) {
		return
	}
	overrideRedirect, err := wm.conn.OverrideRedirect(w)
	if err != nil {
		log.WithField("window", w).WithError(err).Warn("could not read window attributes, skipping")
		return
	}
	if overrideRedirect {
		return
	}

	wm.conn.EnableTracking(w)
	group := wm.currentOutput().Group
	wm.windows.Push(Window{ID: w, Group: group})
	wm.groups[group].setFocus(w)
	wm.reconcile()
	wm.publishDesktops()
}

// unmanageWindow forgets a window. If it was its group's focused
// window, focus moves to the nearest remaining window in that group,
// preferring the predecessor.
func (wm *WindowManager) unmanageWindow(w xproto.Window) {
	log.WithField("window", w).Debug("unmanaging window")
	wm.screen.RemoveDock(w)
	if rec, ok := wm.findWindow(w); ok {
		if focused, has := wm.groups[rec.Group].Focused(); has && focused == w {
			wm.refocusAfterRemoval(rec.Group, w)
		}
		wm.windows.Remove(func(win Window) bool { return win.ID == w })
		delete(wm.shown, w)
	}
	wm.reconcile()
	wm.publishDesktops()
}

// reconcile recomputes placements for every (output, group) pair and
// applies the difference against what is currently on screen: stale
// windows are unmapped, new or moved windows are configured and mapped.
// Map, unmap and configure calls are bracketed by disabling tracking so
// they do not come back as events.
func (wm *WindowManager) reconcile() {
	ports := make([]geometry.Viewport, 0, wm.outputs.Len())
	for _, o := range wm.outputs.Values() {
		ports = append(ports, o.Geom)
	}
	usable := wm.screen.Viewports(ports)

	next := make(map[xproto.Window]geometry.Viewport)
	for i, o := range wm.outputs.Values() {
		group := wm.groups[o.Group]
		l := wm.layouts[group.layoutID]
		for _, p := range l.Layout(usable[i], wm.groupStack(o.Group)) {
			next[p.Window] = p.Region
		}
	}

	for w := range wm.shown {
		if _, keep := next[w]; !keep {
			wm.conn.DisableTracking(w)
			wm.conn.UnmapWindow(w)
			wm.conn.EnableTracking(w)
		}
	}
	for w, region := range next {
		previous, wasShown := wm.shown[w]
		if wasShown && previous == region {
			continue
		}
		wm.conn.DisableTracking(w)
		wm.conn.ConfigureWindow(w, region)
		if !wasShown {
			wm.conn.MapWindow(w)
		}
		wm.conn.EnableTracking(w)
	}
	wm.shown = next

	if wm.outputs.Empty() {
		return
	}
	if focused, ok := wm.groups[wm.currentOutput().Group].Focused(); ok {
		wm.conn.SetFocus(focused)
	} else {
		wm.conn.ClearFocus()
	}
}

// onOutputChange maintains the output table under hot-plugging. A
// zero-sized report removes the output; an unknown output is allocated
// the lowest group not shown elsewhere.
func (wm *WindowManager) onOutputChange(ev OutputChangeEvent) {
	if ev.Geom.Width == 0 || ev.Geom.Height == 0 {
		if _, ok := wm.outputIndex(ev.Output); !ok {
			return
		}
		log.WithField("output", ev.Output).Info("output removed")
		wm.outputs.Remove(func(o Output) bool { return o.ID == ev.Output })
		if wm.outputs.Empty() {
			log.Error("last output removed, nothing left to display on")
		}
		wm.reconcile()
		wm.publishDesktops()
		return
	}

	if i, ok := wm.outputIndex(ev.Output); ok {
		o := wm.outputs.At(i)
		o.Geom = ev.Geom
		wm.outputs.Set(i, o)
		log.WithField("output", ev.Output).Info("output geometry changed")
	} else {
		group, ok := wm.lowestUnusedGroup()
		if !ok {
			log.WithField("output", ev.Output).Error("no free group for new output")
			return
		}
		current := wm.currentOutput().ID
		wm.outputs.Push(Output{ID: ev.Output, Geom: ev.Geom, Group: group})
		// Hot-plugging must not steal the current output.
		wm.outputs.Focus(func(o Output) bool { return o.ID == current })
		log.WithFields(log.Fields{"output": ev.Output, "group": wm.groups[group].Name()}).Info("output added")
	}
	wm.reconcile()
	wm.publishDesktops()
}

// NextGroup shows the next group (by configuration order) on the
// current output. No-op at the last group.
func (wm *WindowManager) NextGroup() {
	if wm.outputs.Empty() {
		return
	}
	target := wm.currentOutput().Group + 1
	if target >= len(wm.groups) {
		return
	}
	wm.assignGroup(target)
	wm.reconcile()
	wm.publishDesktops()
}

// PrevGroup shows the previous group on the current output. No-op at
// the first group.
func (wm *WindowManager) PrevGroup() {
	if wm.outputs.Empty() {
		return
	}
	target := wm.currentOutput().Group - 1
	if target < 0 {
		return
	}
	wm.assignGroup(target)
	wm.reconcile()
	wm.publishDesktops()
}

// SwitchGroup shows the named group on the current output.
func (wm *WindowManager) SwitchGroup(name string) error {
	if wm.outputs.Empty() {
		return errors.New("no output to show a group on")
	}
	target, ok := wm.groupByName(name)
	if !ok {
		return errors.Errorf("no group named %q", name)
	}
	wm.assignGroup(target)
	wm.reconcile()
	wm.publishDesktops()
	return nil
}

// assignGroup points the current output at target. If another output
// shows target already the two outputs trade groups, so the table stays
// injective.
func (wm *WindowManager) assignGroup(target int) {
	cur := wm.outputs.FocusedIndex()
	out := wm.outputs.At(cur)
	if out.Group == target {
		return
	}
	if other, ok := wm.outputIndexShowingGroup(target); ok {
		o := wm.outputs.At(other)
		o.Group = out.Group
		wm.outputs.Set(other, o)
	}
	out.Group = target
	wm.outputs.Set(cur, out)
}

// RotateOutput makes the next output current, wrapping around. Only the
// focus target changes; no group assignment moves.
func (wm *WindowManager) RotateOutput() {
	wm.outputs.FocusNextWrap()
	wm.reconcile()
	wm.publishDesktops()
}

// MoveFocusedToNextGroup moves the focused window to the next group and
// follows it there. No-op without a focused window or at the last
// group.
func (wm *WindowManager) MoveFocusedToNextGroup() {
	wm.moveFocusedBy(1)
}

// MoveFocusedToPrevGroup is MoveFocusedToNextGroup in the other
// direction.
func (wm *WindowManager) MoveFocusedToPrevGroup() {
	wm.moveFocusedBy(-1)
}

func (wm *WindowManager) moveFocusedBy(delta int) {
	if wm.outputs.Empty() {
		return
	}
	source := wm.currentOutput().Group
	target := source + delta
	if target < 0 || target >= len(wm.groups) {
		return
	}
	w, ok := wm.groups[source].Focused()
	if !ok {
		return
	}
	wm.moveWindow(w, source, target)
	wm.assignGroup(target)
	wm.reconcile()
	wm.publishDesktops()
}

// MoveFocusedToGroup moves the focused window to the named group
// without changing what any output shows. When the name matches no
// group the window is detached and lost from tiling; this mirrors a
// long-standing quirk and is reported loudly rather than papered over.
func (wm *WindowManager) MoveFocusedToGroup(name string) {
	if wm.outputs.Empty() {
		return
	}
	source := wm.currentOutput().Group
	if wm.groups[source].Name() == name {
		return
	}
	w, ok := wm.groups[source].Focused()
	if !ok {
		return
	}
	if target, found := wm.groupByName(name); found {
		wm.moveWindow(w, source, target)
	} else {
		log.WithFields(log.Fields{"window": w, "group": name}).
			Error("moved window to non-existent group; the window leaves tiling")
		wm.refocusAfterRemoval(source, w)
		wm.windows.Remove(func(win Window) bool { return win.ID == w })
	}
	wm.reconcile()
	wm.publishDesktops()
}

// moveWindow reassigns w from group source to group target and fixes
// both groups' focus.
func (wm *WindowManager) moveWindow(w xproto.Window, source, target int) {
	wm.refocusAfterRemoval(source, w)
	for i, win := range wm.windows.Values() {
		if win.ID == w {
			win.Group = target
			wm.windows.Set(i, win)
			break
		}
	}
	wm.groups[target].setFocus(w)
}

// RotateFocusInGroup cycles focus through the current group's windows,
// wrapping at the end.
func (wm *WindowManager) RotateFocusInGroup() {
	if wm.outputs.Empty() {
		return
	}
	group := wm.currentOutput().Group
	windows := wm.groupWindows(group)
	if len(windows) == 0 {
		return
	}
	focused, ok := wm.groups[group].Focused()
	if !ok {
		return
	}
	for i, w := range windows {
		if w == focused {
			wm.groups[group].setFocus(windows[(i+1)%len(windows)])
			break
		}
	}
	wm.reconcile()
}

// SwapWithNextInGroup exchanges the focused window with its successor
// in the current group's stack order. The focused window moves with the
// swap.
func (wm *WindowManager) SwapWithNextInGroup() {
	wm.swapInGroup(1)
}

// SwapWithPreviousInGroup exchanges the focused window with its
// predecessor in the current group's stack order.
func (wm *WindowManager) SwapWithPreviousInGroup() {
	wm.swapInGroup(-1)
}

func (wm *WindowManager) swapInGroup(delta int) {
	if wm.outputs.Empty() {
		return
	}
	group := wm.currentOutput().Group
	focused, ok := wm.groups[group].Focused()
	if !ok {
		return
	}
	positions := wm.groupPositions(group)
	at := -1
	for i, pos := range positions {
		if wm.windows.At(pos).ID == focused {
			at = i
			break
		}
	}
	if at < 0 || at+delta < 0 || at+delta >= len(positions) {
		return
	}
	wm.swapHandles(positions[at], positions[at+delta])
	wm.reconcile()
}

// FocusInDirection moves focus to the neighbouring window chosen by the
// policy, possibly crossing to another output.
func (wm *WindowManager) FocusInDirection(policy navigation.Policy, dir navigation.Direction) {
	target, ok := wm.neighbour(policy, dir)
	if !ok {
		return
	}
	rec, ok := wm.findWindow(target)
	if !ok {
		return
	}
	wm.outputs.Focus(func(o Output) bool { return o.Group == rec.Group })
	wm.groups[rec.Group].setFocus(target)
	wm.reconcile()
}

// SwapInDirection exchanges the focused window's position with the
// neighbouring window chosen by the policy. When the neighbour belongs
// to another group the two windows trade groups as well, and each
// group's focus follows the window now occupying the old spot.
func (wm *WindowManager) SwapInDirection(policy navigation.Policy, dir navigation.Direction) {
	if wm.outputs.Empty() {
		return
	}
	group := wm.currentOutput().Group
	focused, ok := wm.groups[group].Focused()
	if !ok {
		return
	}
	target, ok := wm.neighbour(policy, dir)
	if !ok {
		return
	}
	fi, ok := wm.windowIndex(focused)
	if !ok {
		return
	}
	ti, ok := wm.windowIndex(target)
	if !ok {
		return
	}
	a, b := wm.windows.At(fi), wm.windows.At(ti)
	wm.swapHandles(fi, ti)
	if a.Group != b.Group {
		if f, has := wm.groups[a.Group].Focused(); has && f == focused {
			wm.groups[a.Group].setFocus(target)
		}
		if f, has := wm.groups[b.Group].Focused(); has && f == target {
			wm.groups[b.Group].setFocus(focused)
		}
	}
	wm.reconcile()
}

// neighbour runs a navigation policy against the placements applied by
// the last reconciliation.
func (wm *WindowManager) neighbour(policy navigation.Policy, dir navigation.Direction) (xproto.Window, bool) {
	if wm.outputs.Empty() {
		return 0, false
	}
	focused, ok := wm.groups[wm.currentOutput().Group].Focused()
	if !ok {
		return 0, false
	}
	region, ok := wm.shown[focused]
	if !ok {
		return 0, false
	}
	// Candidates are collected per output in stack order, so exact ties
	// inside a policy resolve the same way every time.
	placements := make([]layout.Placement, 0, len(wm.shown))
	for _, o := range wm.outputs.Values() {
		for _, w := range wm.groupWindows(o.Group) {
			if vp, shown := wm.shown[w]; shown {
				placements = append(placements, layout.Placement{Window: w, Region: vp})
			}
		}
	}
	next, ok := policy.NextWindow(dir, region, placements)
	if !ok {
		return 0, false
	}
	return next.Window, true
}

// CloseFocused asks the display server to close the focused window. The
// window record is removed only once the server reports destruction.
func (wm *WindowManager) CloseFocused() {
	if wm.outputs.Empty() {
		return
	}
	if focused, ok := wm.groups[wm.currentOutput().Group].Focused(); ok {
		wm.conn.CloseWindow(focused)
	}
}

// CycleLayout advances the current group to the next layout in the
// shared list.
func (wm *WindowManager) CycleLayout() {
	if wm.outputs.Empty() {
		return
	}
	wm.groups[wm.currentOutput().Group].cycleLayout(len(wm.layouts))
	wm.reconcile()
}

func (wm *WindowManager) publishDesktops() {
	names := make([]string, len(wm.groups))
	for i, g := range wm.groups {
		names[i] = g.Name()
	}
	current := 0
	if !wm.outputs.Empty() {
		current = wm.currentOutput().Group
	}
	ids := make([]xproto.Window, 0, wm.windows.Len())
	for _, w := range wm.windows.Values() {
		ids = append(ids, w.ID)
	}
	wm.conn.PublishDesktops(names, current, ids)
}

func (wm *WindowManager) currentOutput() Output {
	o, _ := wm.outputs.Focused()
	return o
}

func (wm *WindowManager) isManaged(w xproto.Window) bool {
	if wm.screen.HasDock(w) {
		return true
	}
	_, ok := wm.findWindow(w)
	return ok
}

func (wm *WindowManager) findWindow(w xproto.Window) (Window, bool) {
	for _, win := range wm.windows.Values() {
		if win.ID == w {
			return win, true
		}
	}
	return Window{}, false
}

func (wm *WindowManager) windowIndex(w xproto.Window) (int, bool) {
	for i, win := range wm.windows.Values() {
		if win.ID == w {
			return i, true
		}
	}
	return 0, false
}

// swapHandles trades the window handles stored in two records, leaving
// each record's group membership at its stack position.
func (wm *WindowManager) swapHandles(i, j int) {
	a, b := wm.windows.At(i), wm.windows.At(j)
	a.ID, b.ID = b.ID, a.ID
	wm.windows.Set(i, a)
	wm.windows.Set(j, b)
}

// groupWindows returns the group's windows in stack order.
func (wm *WindowManager) groupWindows(group int) []xproto.Window {
	var out []xproto.Window
	for _, w := range wm.windows.Values() {
		if w.Group == group {
			out = append(out, w.ID)
		}
	}
	return out
}

// groupPositions returns the flat-stack indices of the group's windows.
func (wm *WindowManager) groupPositions(group int) []int {
	var out []int
	for i, w := range wm.windows.Values() {
		if w.Group == group {
			out = append(out, i)
		}
	}
	return out
}

// groupStack builds the ordered window stack handed to layouts, with
// the group's focused window marked.
func (wm *WindowManager) groupStack(group int) *stack.Stack[xproto.Window] {
	s := stack.FromSlice(wm.groupWindows(group))
	if focused, ok := wm.groups[group].Focused(); ok {
		s.Focus(func(w xproto.Window) bool { return w == focused })
	}
	return s
}

// refocusAfterRemoval moves the group's focus to the nearest remaining
// window once w leaves it: the predecessor when there is one, otherwise
// the successor, otherwise nothing.
func (wm *WindowManager) refocusAfterRemoval(group int, w xproto.Window) {
	windows := wm.groupWindows(group)
	for i, win := range windows {
		if win != w {
			continue
		}
		switch {
		case i > 0:
			wm.groups[group].setFocus(windows[i-1])
		case len(windows) > 1:
			wm.groups[group].setFocus(windows[i+1])
		default:
			wm.groups[group].clearFocus()
		}
		return
	}
}

func (wm *WindowManager) outputIndex(id randr.Crtc) (int, bool) {
	for i, o := range wm.outputs.Values() {
		if o.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (wm *WindowManager) outputShowingGroup(group int) (Output, bool) {
	for _, o := range wm.outputs.Values() {
		if o.Group == group {
			return o, true
		}
	}
	return Output{}, false
}

func (wm *WindowManager) outputIndexShowingGroup(group int) (int, bool) {
	for i, o := range wm.outputs.Values() {
		if o.Group == group {
			return i, true
		}
	}
	return 0, false
}

// lowestUnusedGroup finds the first group not shown on any output.
func (wm *WindowManager) lowestUnusedGroup() (int, bool) {
	for g := range wm.groups {
		if _, used := wm.outputIndexShowingGroup(g); !used {
			return g, true
		}
	}
	return 0, false
}

func (wm *WindowManager) groupByName(name string) (int, bool) {
	for i, g := range wm.groups {
		if g.Name() == name {
			return i, true
		}
	}
	return 0, false
}

func hasType(types []WindowType, t WindowType) bool {
	for _, have := range types {
		if have == t {
			return true
		}
	}
	return false
}
