// Package nav owns the page stack of the launcher.
//
// Every page is a laid-out grid of entries for one level of the menu tree.
// Only the top page is visible; lower pages are kept (hidden) so that going
// back re-shows them without rebuilding.
package nav

import (
	"pimenu-ng/internal/menu"
)

// Entry is one tile on a page. It is built once per page and never mutated,
// so handlers bound to it always see the item and path of their own tile.
type Entry struct {
	Item menu.Item
	// Path is the ancestor names including this item's own name.
	Path []string
	Back bool
	Row  int
	Col  int
}

// Argv returns the command launched by a leaf entry.
func (e Entry) Argv() []string {
	return e.Item.Argv(e.Path)
}

// Page is one level of the navigation stack.
type Page struct {
	Entries []Entry
	Rows    int
	Cols    int
	HasBack bool
	// Path is the accumulated ancestor names of the level shown.
	Path    []string
	Visible bool
}

// At returns the entry occupying the given grid cell.
func (p *Page) At(row, col int) (Entry, bool) {
	if p == nil || row < 0 || col < 0 || col >= p.Cols || row >= p.Rows {
		return Entry{}, false
	}
	i := row*p.Cols + col
	if i >= len(p.Entries) {
		return Entry{}, false
	}
	return p.Entries[i], true
}

func newPage(items []menu.Item, path []string, withBack bool) *Page {
	n := len(items)
	if withBack {
		n++
	}
	rows, cols := Layout(n)

	base := make([]string, len(path))
	copy(base, path)

	p := &Page{
		Entries: make([]Entry, 0, n),
		Rows:    rows,
		Cols:    cols,
		HasBack: withBack,
		Path:    base,
	}
	if withBack {
		p.Entries = append(p.Entries, Entry{
			Item: menu.Item{Name: "back", Label: "back…"},
			Back: true,
		})
	}
	for _, it := range items {
		act := make([]string, 0, len(base)+1)
		act = append(act, base...)
		act = append(act, it.Name)
		p.Entries = append(p.Entries, Entry{Item: it, Path: act})
	}
	for i := range p.Entries {
		p.Entries[i].Row, p.Entries[i].Col = Position(i, cols)
	}
	return p
}

// Stack is the navigation state of one launcher instance.
type Stack struct {
	pages []*Page
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Reset discards every page and shows a single root page without a back
// entry.
func (s *Stack) Reset(root []menu.Item) {
	for _, p := range s.pages {
		p.Visible = false
	}
	p := newPage(root, nil, false)
	p.Visible = true
	s.pages = []*Page{p}
}

// Enter pushes a page for items. When another page is already on the stack
// it is hidden and the new page receives a back entry at index 0.
func (s *Stack) Enter(items []menu.Item, path []string) *Page {
	withBack := len(s.pages) > 0
	if withBack {
		s.Hide()
	}
	p := newPage(items, path, withBack)
	s.pages = append(s.pages, p)
	s.Show()
	return p
}

// Back pops the top page. When the menu file changed since tree was loaded,
// it reloads and resets to the new root instead; the reloaded tree is
// returned in that case, otherwise tree is returned unchanged. A failing
// reload leaves the stack as it was.
func (s *Stack) Back(tree *menu.Tree, reload func() (*menu.Tree, error)) (*menu.Tree, error) {
	if tree.HasChanged() && reload != nil {
		next, err := reload()
		if err != nil {
			return tree, err
		}
		s.Reset(next.Items)
		return next, nil
	}
	s.pop()
	return tree, nil
}

// Home collapses the stack to its root page.
func (s *Stack) Home() {
	for len(s.pages) > 1 {
		s.pages[len(s.pages)-1].Visible = false
		s.pages = s.pages[:len(s.pages)-1]
	}
	s.Show()
}

func (s *Stack) pop() {
	if len(s.pages) <= 1 {
		s.Show()
		return
	}
	s.pages[len(s.pages)-1].Visible = false
	s.pages = s.pages[:len(s.pages)-1]
	s.Show()
}

// Top returns the visible page, or nil before the first Reset.
func (s *Stack) Top() *Page {
	if len(s.pages) == 0 {
		return nil
	}
	return s.pages[len(s.pages)-1]
}

func (s *Stack) Depth() int {
	return len(s.pages)
}

// Hide hides the top page, e.g. while an action screen covers it.
func (s *Stack) Hide() {
	if p := s.Top(); p != nil {
		p.Visible = false
	}
}

// Show makes the top page visible again.
func (s *Stack) Show() {
	if p := s.Top(); p != nil {
		p.Visible = true
	}
}
