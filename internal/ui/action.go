package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"pimenu-ng/internal/gps"
	"pimenu-ng/internal/nav"
	"pimenu-ng/internal/output"
	"pimenu-ng/internal/runner"
)

// lineMsg carries one line of child output. session ties it to the run that
// produced it so lines of an abandoned run are ignored.
type lineMsg struct {
	session string
	line    string
}

// endMsg reports that a run's output stream is exhausted.
type endMsg struct {
	session string
}

// waitLine blocks on the supervisor's queue for the next line.
func waitLine(session string, sup *runner.Supervisor) tea.Cmd {
	return func() tea.Msg {
		line, ok := sup.Next()
		if !ok {
			return endMsg{session: session}
		}
		return lineMsg{session: session, line: line}
	}
}

type actionCommand int

const (
	cmdStop actionCommand = iota
	cmdRerun
	cmdFollow
	cmdClose
)

type footerButton struct {
	label string
	cmd   actionCommand
	color string
}

// action is the screen shown while a leaf's process runs.
type action struct {
	session string
	entry   nav.Entry
	label   string
	title   string
	color   string

	sup     *runner.Supervisor
	sink    *output.Sink
	filter  *gps.Filter
	mapView *mapPanel
	vp      viewport.Model

	err   error
	ended bool
}

// SetTitle replaces the header title with the fix-quality label.
func (a *action) SetTitle(title string) {
	a.title = title
}

func (a *action) running() bool {
	return a.sup != nil && a.sup.State() == runner.Running
}

func (a *action) status() string {
	switch {
	case a.err != nil:
		return "failed"
	case a.sup == nil:
		return "idle"
	}
	snap := a.sup.Snapshot()
	switch {
	case snap.State == runner.Running:
		return fmt.Sprintf("running pid %d", snap.PID)
	case snap.Stopped:
		return "stopped"
	case snap.ExitErr != nil:
		return snap.ExitErr.Error()
	default:
		return "exited"
	}
}

func (a *action) buttons() []footerButton {
	out := make([]footerButton, 0, 3)
	if a.running() {
		out = append(out, footerButton{label: "Stop", cmd: cmdStop, color: colorLeaf})
	} else {
		out = append(out, footerButton{label: "Run again", cmd: cmdRerun, color: colorBranch})
	}
	follow := "Follow"
	if a.sink.AutoScroll() {
		follow = "Following"
	}
	out = append(out, footerButton{label: follow, cmd: cmdFollow, color: colorBranch})
	out = append(out, footerButton{label: "Close", cmd: cmdClose, color: colorBack})
	return out
}

// buttonAt maps a footer column to the button drawn there.
func (a *action) buttonAt(x int) (footerButton, bool) {
	pos := 0
	for _, b := range a.buttons() {
		w := runewidth.StringWidth(b.label) + 2
		if x >= pos && x < pos+w {
			return b, true
		}
		pos += w + 1
	}
	return footerButton{}, false
}

var viewportKeys = viewport.KeyMap{
	PageDown:     key.NewBinding(key.WithKeys("pgdown")),
	PageUp:       key.NewBinding(key.WithKeys("pgup")),
	HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
	HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
	Up:           keys.Up,
	Down:         keys.Down,
}

func (m *Model) startAction(e nav.Entry) tea.Cmd {
	a := &action{
		entry: e,
		label: e.Item.Label,
		color: tileColor(e),
		sink:  output.New(m.opts.Output),
		vp:    viewport.New(1, 1),
	}
	a.vp.KeyMap = viewportKeys
	if e.Item.ShowMap() {
		a.mapView = newMapPanel()
		a.filter = gps.NewFilter(gps.FilterConfig{
			Interval: m.opts.RefreshInterval,
			Markers:  a.mapView,
			Title:    a,
			Now:      m.opts.Now,
			Logger:   m.logger,
		})
		a.sink.Attach(a.filter)
	}
	m.stack.Hide()
	m.act = a
	m.resize()
	return m.launch()
}

func (m *Model) launch() tea.Cmd {
	a := m.act
	a.session = uuid.NewString()
	argv := a.entry.Argv()
	sup, err := m.slot.Launch(argv)
	if err != nil {
		a.err = err
		a.sink.Append("error: " + err.Error())
		m.logger.Warn("action failed to start", zap.Strings("argv", argv), zap.Error(err))
		m.refresh()
		return nil
	}
	a.sup, a.err, a.ended = sup, nil, false
	m.logger.Info("action started",
		zap.String("session", a.session),
		zap.Strings("argv", argv),
		zap.Int("pid", sup.Snapshot().PID),
	)
	return waitLine(a.session, sup)
}

func (m *Model) runActionCommand(c actionCommand) tea.Cmd {
	a := m.act
	switch c {
	case cmdStop:
		if !a.running() {
			return nil
		}
		a.sup.Stop()
		// Lines already handed to the UI belong to the old session.
		a.session = uuid.NewString()
		a.ended = true
		a.sink.Append("── stopped ──")
		m.refresh()
	case cmdRerun:
		if a.running() {
			return nil
		}
		a.sink.Append("── run again ──")
		return m.launch()
	case cmdFollow:
		on := !a.sink.AutoScroll()
		a.sink.SetAutoScroll(on)
		if on {
			a.vp.GotoBottom()
		}
	case cmdClose:
		m.closeAction()
	}
	return nil
}

// closeAction stops the process and returns to the root page, picking up a
// changed menu file on the way.
func (m *Model) closeAction() {
	if m.act == nil {
		return
	}
	m.slot.Release()
	m.logger.Info("action closed", zap.String("session", m.act.session))
	m.act = nil
	if m.tree.HasChanged() && m.opts.Reload != nil {
		if m.reloadTree() == nil {
			return
		}
	}
	m.stack.Home()
	m.cursor = 0
}

func (m *Model) handleLine(msg lineMsg) tea.Cmd {
	a := m.act
	if a == nil || msg.session != a.session || a.sup == nil || a.sup.Snapshot().Stopped {
		return nil
	}
	a.sink.Append(msg.line)
	m.refresh()
	return waitLine(a.session, a.sup)
}

func (m *Model) handleEnd(msg endMsg) {
	a := m.act
	if a == nil || msg.session != a.session || a.ended {
		return
	}
	a.ended = true
	snap := a.sup.Snapshot()
	if snap.ExitErr != nil {
		a.sink.Append("── " + snap.ExitErr.Error() + " ──")
	} else {
		a.sink.Append("── exited ──")
	}
	m.refresh()
}

func (m *Model) updateAction(msg tea.Msg) tea.Cmd {
	a := m.act
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Back):
			return m.runActionCommand(cmdClose)
		case key.Matches(msg, keys.Stop):
			return m.runActionCommand(cmdStop)
		case key.Matches(msg, keys.Rerun):
			return m.runActionCommand(cmdRerun)
		case key.Matches(msg, keys.Follow):
			return m.runActionCommand(cmdFollow)
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft && msg.Y == m.viewHeight()-footerHeight {
			if b, ok := a.buttonAt(msg.X); ok {
				return m.runActionCommand(b.cmd)
			}
			return nil
		}
	}

	// Scrolling away from the tail pauses follow; scrolling back resumes it.
	before := a.vp.YOffset
	var cmd tea.Cmd
	a.vp, cmd = a.vp.Update(msg)
	if a.vp.YOffset != before {
		a.sink.SetAutoScroll(a.vp.AtBottom())
	}
	return cmd
}

// refresh copies the scrollback into the viewport and follows the tail.
func (m *Model) refresh() {
	a := m.act
	if a == nil {
		return
	}
	a.vp.SetContent(a.sink.String())
	if a.sink.AutoScroll() {
		a.vp.GotoBottom()
	}
}

func (m *Model) viewAction() string {
	a := m.act
	width := m.viewWidth()

	title := a.label
	if a.title != "" {
		title = a.title
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color(colorText)).
		Background(lipgloss.Color(a.color)).
		Render(runewidth.Truncate(title, max(width/2, 8), "…"))
	parts := []string{head, " " + a.status()}
	if m.menuChanged {
		parts = append(parts, " ", badgeStyle.Render("menu changed"))
	}
	header := headerStyle.Width(width).MaxHeight(headerHeight).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))

	body := a.vp.View()
	if a.mapView != nil {
		var st gps.State
		if a.filter != nil {
			st = a.filter.State()
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, a.mapView.view(mapWidth, a.vp.Height, st))
	}

	btns := make([]string, 0, 3)
	for _, b := range a.buttons() {
		btns = append(btns, buttonStyle.Background(lipgloss.Color(b.color)).Render(b.label))
	}
	footer := strings.Join(btns, " ")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
