// Package config loads and validates the YAML configuration: the
// modifier key, keybindings, the ordered layout list and the ordered
// group list.
package config

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/tilde-wm/tilde/internal/layout"
)

// LayoutKind selects one of the built-in layout algorithms.
type LayoutKind string

const (
	KindStack       LayoutKind = "stack"
	KindTiled       LayoutKind = "tiled"
	KindThreeColumn LayoutKind = "three-column"
)

// Keybinding binds one key combination to a command. The key string
// uses the keybind grammar ("mod4-shift-q"); "$mod" expands to the
// configured modifier.
type Keybinding struct {
	Key     string   `yaml:"key"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// LayoutConfig names one layout instance. Order matters: it is the
// order layouts cycle in.
type LayoutConfig struct {
	Name    string     `yaml:"name"`
	Kind    LayoutKind `yaml:"kind"`
	Padding int        `yaml:"padding"`
}

// GroupConfig names one workspace group and its starting layout. Order
// matters: it is the order groups are assigned to outputs and the
// order next-group/prev-group walk.
type GroupConfig struct {
	Name   string `yaml:"name"`
	Layout string `yaml:"layout"`
}

// Config holds the application configuration.
type Config struct {
	ModKey      string         `yaml:"mod_key"`
	LogLevel    string         `yaml:"log_level"`
	Keybindings []Keybinding   `yaml:"keybindings"`
	Layouts     []LayoutConfig `yaml:"layouts"`
	Groups      []GroupConfig  `yaml:"groups"`
}

func DefaultConfig() *Config {
	return &Config{
		ModKey:   "mod1",
		LogLevel: "info",
		Keybindings: []Keybinding{
			{Key: "$mod-w", Command: "close-focused"},
			{Key: "$mod-Tab", Command: "rotate-focus-in-group"},
			{Key: "$mod-h", Command: "focus-in-direction", Args: []string{"left"}},
			{Key: "$mod-j", Command: "focus-in-direction", Args: []string{"down"}},
			{Key: "$mod-k", Command: "focus-in-direction", Args: []string{"up"}},
			{Key: "$mod-l", Command: "focus-in-direction", Args: []string{"right"}},
			{Key: "$mod-shift-h", Command: "swap-in-direction", Args: []string{"left"}},
			{Key: "$mod-shift-j", Command: "swap-in-direction", Args: []string{"down"}},
			{Key: "$mod-shift-k", Command: "swap-in-direction", Args: []string{"up"}},
			{Key: "$mod-shift-l", Command: "swap-in-direction", Args: []string{"right"}},
			{Key: "$mod-u", Command: "swap-with-previous-in-group"},
			{Key: "$mod-i", Command: "swap-with-next-in-group"},
			{Key: "$mod-comma", Command: "prev-group"},
			{Key: "$mod-period", Command: "next-group"},
			{Key: "$mod-shift-comma", Command: "move-focused-to-prev-group"},
			{Key: "$mod-shift-period", Command: "move-focused-to-next-group"},
			{Key: "$mod-o", Command: "rotate-output"},
			{Key: "$mod-space", Command: "cycle-layout"},
			{Key: "$mod-Return", Command: "spawn", Args: []string{"xterm"}},
			{Key: "$mod-shift-q", Command: "quit"},
		},
		Layouts: []LayoutConfig{
			{Name: "stack", Kind: KindStack, Padding: 0},
			{Name: "tiled", Kind: KindTiled, Padding: 2},
			{Name: "three-column", Kind: KindThreeColumn, Padding: 2},
		},
		Groups: []GroupConfig{
			{Name: "web", Layout: "stack"},
			{Name: "term", Layout: "three-column"},
			{Name: "misc", Layout: "tiled"},
		},
	}
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModKey) == "" {
		return errors.New("mod_key is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errors.Errorf("log_level must be one of: debug, info, warning, error (got %q)", c.LogLevel)
	}

	if len(c.Layouts) == 0 {
		return errors.New("layouts must not be empty")
	}
	layoutNames := map[string]bool{}
	for i, l := range c.Layouts {
		if strings.TrimSpace(l.Name) == "" {
			return errors.Errorf("layouts[%d]: name is required", i)
		}
		if layoutNames[l.Name] {
			return errors.Errorf("layouts[%d]: duplicate layout name %q", i, l.Name)
		}
		layoutNames[l.Name] = true
		switch l.Kind {
		case KindStack, KindTiled, KindThreeColumn:
		default:
			return errors.Errorf("layouts[%d] %q: unknown kind %q", i, l.Name, l.Kind)
		}
		if l.Padding < 0 {
			return errors.Errorf("layouts[%d] %q: padding must be >= 0", i, l.Name)
		}
	}

	if len(c.Groups) == 0 {
		return errors.New("groups must not be empty")
	}
	groupNames := map[string]bool{}
	for i, g := range c.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return errors.Errorf("groups[%d]: name is required", i)
		}
		if groupNames[g.Name] {
			return errors.Errorf("groups[%d]: duplicate group name %q", i, g.Name)
		}
		groupNames[g.Name] = true
		if g.Layout != "" && !layoutNames[g.Layout] {
			return errors.Errorf("groups[%d] %q: layout %q not found in layouts", i, g.Name, g.Layout)
		}
	}

	for i, kb := range c.Keybindings {
		if strings.TrimSpace(kb.Key) == "" {
			return errors.Errorf("keybindings[%d]: key is required", i)
		}
		if strings.TrimSpace(kb.Command) == "" {
			return errors.Errorf("keybindings[%d] %q: command is required", i, kb.Key)
		}
	}
	return nil
}

// BuildLayouts instantiates the configured layout list in order.
func (c *Config) BuildLayouts() []layout.Layout {
	out := make([]layout.Layout, 0, len(c.Layouts))
	for _, l := range c.Layouts {
		switch l.Kind {
		case KindStack:
			out = append(out, layout.NewStackLayout(l.Name, l.Padding))
		case KindTiled:
			out = append(out, layout.NewTiledLayout(l.Name, l.Padding))
		case KindThreeColumn:
			out = append(out, layout.NewThreeColumn(l.Name, l.Padding))
		}
	}
	return out
}

// ExpandKey substitutes "$mod" in a key combination with the
// configured modifier.
func (c *Config) ExpandKey(key string) string {
	return strings.ReplaceAll(key, "$mod", c.ModKey)
}
