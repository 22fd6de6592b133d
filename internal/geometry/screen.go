package geometry

import "github.com/BurntSushi/xgb/xproto"

// Dock is a window that reserves screen-edge space. A dock without a
// strut hint takes part in no viewport computation but is still tracked
// so it can be unregistered when the window goes away.
type Dock struct {
	Window xproto.Window
	Strut  *Strut
}

// Screen tracks the live set of dock windows and shrinks output
// rectangles by their struts.
type Screen struct {
	docks []Dock
}

// AddDock registers a dock window. strut may be nil when the window
// publishes no strut hint.
func (s *Screen) AddDock(w xproto.Window, strut *Strut) {
	s.docks = append(s.docks, Dock{Window: w, Strut: strut})
}

// RemoveDock unregisters the dock for w, if any.
func (s *Screen) RemoveDock(w xproto.Window) {
	kept := s.docks[:0]
	for _, d := range s.docks {
		if d.Window != w {
			kept = append(kept, d)
		}
	}
	s.docks = kept
}

// HasDock reports whether w is registered as a dock.
func (s *Screen) HasDock(w xproto.Window) bool {
	for _, d := range s.docks {
		if d.Window == w {
			return true
		}
	}
	return false
}

// Viewports returns the usable area of each candidate output rectangle
// after subtracting every dock's strut. The struts are measured against
// the bounding extent of all candidates, so a strut at the bottom of the
// whole screen only shrinks the outputs it actually borders. Output
// order is preserved.
func (s *Screen) Viewports(ports []Viewport) []Viewport {
	width, height := 0, 0
	for _, p := range ports {
		width = max(width, p.X+p.Width)
		height = max(height, p.Y+p.Height)
	}
	out := make([]Viewport, len(ports))
	for i, p := range ports {
		for _, d := range s.docks {
			if d.Strut == nil {
				continue
			}
			p = p.WithoutStrut(width, height, *d.Strut)
		}
		out[i] = p
	}
	return out
}
