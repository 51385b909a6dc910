// Package ui is the terminal front end of the launcher: a tile grid for every
// menu level and an output screen for the running action.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"pimenu-ng/internal/menu"
	"pimenu-ng/internal/nav"
	"pimenu-ng/internal/output"
	"pimenu-ng/internal/runner"
)

// menuChangedMsg is sent when the menu file was modified on disk.
type menuChangedMsg struct{}

// backPressedMsg is sent for a hardware back button press.
type backPressedMsg struct{}

type Options struct {
	Tree *menu.Tree
	// Reload re-reads the menu file. If nil, changes on disk are ignored.
	Reload func() (*menu.Tree, error)

	Runner          runner.Config
	Output          output.Config
	RefreshInterval time.Duration

	// Changes and Presses are optional event sources.
	Changes <-chan struct{}
	Presses <-chan struct{}

	Now    func() time.Time
	Logger *zap.Logger
}

type Model struct {
	opts   Options
	logger *zap.Logger

	tree   *menu.Tree
	stack  *nav.Stack
	slot   *runner.Slot
	cursor int
	act    *action

	width, height int

	menuChanged bool
	banner      string
	quitting    bool
}

func New(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Runner.Logger == nil {
		opts.Runner.Logger = opts.Logger
	}
	if opts.Output.Logger == nil {
		opts.Output.Logger = opts.Logger
	}
	m := &Model{
		opts:   opts,
		logger: opts.Logger,
		tree:   opts.Tree,
		stack:  nav.NewStack(),
		slot:   runner.NewSlot(opts.Runner),
	}
	m.stack.Reset(opts.Tree.Items)
	return m
}

func waitSignal(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitSignal(m.opts.Changes, menuChangedMsg{}),
		waitSignal(m.opts.Presses, backPressedMsg{}),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.Shutdown()
			m.quitting = true
			return m, tea.Quit
		}
		if m.act != nil {
			return m, m.updateAction(msg)
		}
		return m, m.updateMenu(msg)

	case tea.MouseMsg:
		if m.act != nil {
			return m, m.updateAction(msg)
		}
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			if i, ok := m.hit(msg.X, msg.Y); ok {
				m.cursor = i
				return m, m.activate(m.stack.Top().Entries[i])
			}
		}
		return m, nil

	case lineMsg:
		return m, m.handleLine(msg)

	case endMsg:
		m.handleEnd(msg)
		return m, nil

	case menuChangedMsg:
		m.menuChanged = true
		m.logger.Info("menu file changed", zap.String("path", m.tree.Path))
		if m.act == nil && m.stack.Depth() == 1 && m.opts.Reload != nil {
			_ = m.reloadTree()
		}
		return m, waitSignal(m.opts.Changes, menuChangedMsg{})

	case backPressedMsg:
		if m.act != nil {
			m.closeAction()
		} else {
			m.goBack()
		}
		return m, waitSignal(m.opts.Presses, backPressedMsg{})
	}
	return m, nil
}

func (m *Model) updateMenu(msg tea.KeyMsg) tea.Cmd {
	p := m.stack.Top()
	if p == nil {
		return nil
	}
	n := len(p.Entries)
	switch {
	case key.Matches(msg, keys.Left):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Right):
		if m.cursor < n-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Up):
		if m.cursor-p.Cols >= 0 {
			m.cursor -= p.Cols
		}
	case key.Matches(msg, keys.Down):
		if m.cursor+p.Cols < n {
			m.cursor += p.Cols
		}
	case key.Matches(msg, keys.Select):
		if m.cursor < n {
			return m.activate(p.Entries[m.cursor])
		}
	case key.Matches(msg, keys.Back):
		m.goBack()
	}
	return nil
}

// activate runs the tile's behaviour: back, descend into a branch or launch
// a leaf.
func (m *Model) activate(e nav.Entry) tea.Cmd {
	switch {
	case e.Back:
		m.goBack()
		return nil
	case e.Item.IsBranch():
		m.stack.Enter(e.Item.Items, e.Path)
		m.cursor = 0
		m.logger.Debug("entered branch", zap.Strings("path", e.Path))
		return nil
	default:
		return m.startAction(e)
	}
}

func (m *Model) goBack() {
	tree, err := m.stack.Back(m.tree, m.opts.Reload)
	if err != nil {
		m.banner = err.Error()
		m.logger.Warn("menu reload failed", zap.Error(err))
		return
	}
	if tree != m.tree {
		m.adopt(tree)
	}
	m.cursor = 0
}

// reloadTree re-reads the menu and resets to its root. On error the current
// tree and stack are kept.
func (m *Model) reloadTree() error {
	tree, err := m.opts.Reload()
	if err != nil {
		m.banner = err.Error()
		m.logger.Warn("menu reload failed", zap.Error(err))
		return err
	}
	m.stack.Reset(tree.Items)
	m.adopt(tree)
	m.cursor = 0
	return nil
}

func (m *Model) adopt(tree *menu.Tree) {
	m.tree = tree
	m.menuChanged = false
	m.banner = ""
	m.logger.Info("menu reloaded", zap.String("path", tree.Path), zap.Int("items", len(tree.Items)))
}

func (m *Model) viewWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m *Model) viewHeight() int {
	if m.height <= 0 {
		return defaultHeight
	}
	return m.height
}

func (m *Model) resize() {
	a := m.act
	if a == nil {
		return
	}
	w := m.viewWidth()
	if a.mapView != nil {
		w -= mapWidth
	}
	a.vp.Width = max(w, 1)
	a.vp.Height = max(m.viewHeight()-headerHeight-footerHeight, 1)
	m.refresh()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.act != nil {
		return m.viewAction()
	}
	return m.viewMenu()
}

// Shutdown stops a running action. It is safe to call more than once.
func (m *Model) Shutdown() {
	m.slot.Release()
}
