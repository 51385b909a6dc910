// Package menu loads the launcher's menu tree from YAML.
//
// The document root is a sequence of items. An item with an `items` key is a
// branch that opens a deeper page; every other item is a leaf that launches a
// command. The tree is rebuilt wholesale on every load and never mutated.
package menu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SpecialShowMap selects the map/telemetry execution mode for a leaf.
const SpecialShowMap = "showMap"

// Item is one menu entry: a branch when it has children, otherwise a leaf.
type Item struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Icon    string `yaml:"icon,omitempty"`
	Color   string `yaml:"color,omitempty"`
	Command string `yaml:"command,omitempty"`
	Special string `yaml:"special,omitempty"`
	Items   []Item `yaml:"items,omitempty"`

	// branch is true when the `items` key was present, even if empty, so that
	// an empty branch is reported instead of silently becoming a leaf.
	branch bool
}

// UnmarshalYAML records whether the `items` key was present.
func (it *Item) UnmarshalYAML(value *yaml.Node) error {
	type plain Item
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*it = Item(p)
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value == "items" {
				it.branch = true
				break
			}
		}
	}
	return nil
}

// IsBranch reports whether selecting the item opens a deeper page.
func (it Item) IsBranch() bool {
	return it.branch || len(it.Items) > 0
}

// ShowMap reports whether the leaf asks for telemetry/map output.
func (it Item) ShowMap() bool {
	return strings.EqualFold(strings.TrimSpace(it.Special), SpecialShowMap)
}

// Argv returns the argument vector launched for a leaf. An explicit command
// is split on whitespace; otherwise the accumulated path of names is used.
func (it Item) Argv(path []string) []string {
	if fields := strings.Fields(it.Command); len(fields) > 0 {
		return fields
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}

// Tree is one loaded generation of the menu.
type Tree struct {
	Items   []Item
	Path    string
	ModTime time.Time
}

// ConfigError reports a menu file that is missing, unreadable or invalid.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("menu config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads and validates the menu at path.
func Load(path string) (*Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	items, err := Parse(b)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return &Tree{Items: items, Path: path, ModTime: info.ModTime()}, nil
}

// Parse decodes and validates a menu document.
func Parse(b []byte) ([]Item, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	var items []Item
	if err := dec.Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("menu is empty")
		}
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("menu is empty")
	}
	if err := validate(items, "menu"); err != nil {
		return nil, err
	}
	return items, nil
}

func validate(items []Item, prefix string) error {
	seen := make(map[string]int, len(items))
	for i, it := range items {
		at := fmt.Sprintf("%s[%d]", prefix, i)
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%s.name is required", at)
		}
		if strings.TrimSpace(it.Label) == "" {
			return fmt.Errorf("%s.label is required", at)
		}
		if j, dup := seen[it.Name]; dup {
			return fmt.Errorf("%s.name %q duplicates %s[%d]", at, it.Name, prefix, j)
		}
		seen[it.Name] = i

		if !it.IsBranch() {
			continue
		}
		if len(it.Items) == 0 {
			return fmt.Errorf("%s.items must not be empty", at)
		}
		if strings.TrimSpace(it.Command) != "" {
			return fmt.Errorf("%s.command is not allowed on a branch", at)
		}
		if strings.TrimSpace(it.Special) != "" {
			return fmt.Errorf("%s.special is not allowed on a branch", at)
		}
		if err := validate(it.Items, at+".items"); err != nil {
			return err
		}
	}
	return nil
}

// HasChanged reports whether the file on disk differs from the loaded
// generation. A file that can no longer be read counts as changed so that the
// following reload surfaces the error.
func (t *Tree) HasChanged() bool {
	if t == nil {
		return false
	}
	info, err := os.Stat(t.Path)
	if err != nil {
		return true
	}
	return !info.ModTime().Equal(t.ModTime)
}
