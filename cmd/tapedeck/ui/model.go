package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"tapedeck/internal/deck"
	"tapedeck/internal/diagnostics"
	"tapedeck/internal/navigation"
	"tapedeck/internal/pages"
	"tapedeck/internal/schedule"
	"tapedeck/internal/transport"
)

const (
	defaultTapeWidth = 60
	eventTail        = 6
)

// FrameMsg drives one deck tick.
type FrameMsg time.Time

// CatalogMsg carries a reloaded page catalog.
type CatalogMsg struct {
	Catalog *pages.Catalog
}

// Model is the front panel. All deck mutation happens in Update, on the
// bubbletea goroutine, through the session's single tick handler.
type Model struct {
	session *deck.Session
	source  *schedule.Manual
	catalog *pages.Catalog
	journal *diagnostics.Journal
	logger  *zap.Logger

	keys   KeyMap
	help   help.Model
	styles Styles

	frame  time.Duration
	last   time.Time
	width  int
	status string
	err    error
}

// Config wires a Model.
type Config struct {
	Session *deck.Session
	// Source must be the tick source the session is attached to.
	Source  *schedule.Manual
	Catalog *pages.Catalog
	Journal *diagnostics.Journal
	Frame   time.Duration
	Styles  *Styles
	Logger  *zap.Logger
}

// NewModel builds the panel.
func NewModel(cfg Config) Model {
	if cfg.Frame <= 0 {
		cfg.Frame = schedule.DefaultFrameInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = pages.DefaultCatalog()
	}
	if cfg.Journal == nil {
		cfg.Journal = diagnostics.NewJournal(eventTail)
	}
	styles := NewStyles(DetectTheme())
	if cfg.Styles != nil {
		styles = *cfg.Styles
	}
	return Model{
		session: cfg.Session,
		source:  cfg.Source,
		catalog: cfg.Catalog,
		journal: cfg.Journal,
		logger:  cfg.Logger,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		styles:  styles,
		frame:   cfg.Frame,
		status:  "press l to load a tape",
	}
}

func (m Model) frameCmd() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return FrameMsg(t) })
}

// Init starts the frame clock.
func (m Model) Init() tea.Cmd {
	return m.frameCmd()
}

// Update handles keys, frames and catalog reloads.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case FrameMsg:
		now := time.Time(msg)
		delta := m.frame
		if !m.last.IsZero() {
			delta = now.Sub(m.last)
		}
		m.last = now
		m.source.Fire(delta)
		return m, m.frameCmd()

	case CatalogMsg:
		if err := m.session.ReplaceCatalog(msg.Catalog); err != nil {
			m.status = fmt.Sprintf("catalog reload refused: %v", err)
			m.logger.Warn("catalog reload refused", zap.Error(err))
			return m, nil
		}
		m.catalog = msg.Catalog
		m.status = fmt.Sprintf("catalog reloaded: %d pages", len(msg.Catalog.Pages()))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		if in, ok := m.intentFor(msg); ok {
			accepted := m.session.Dispatch(in)
			m.status = fmt.Sprintf("%s: %s", in, acceptedWord(accepted))
			m.logger.Debug("key intent", zap.String("intent", in.String()), zap.Bool("accepted", accepted))
		}
		return m, nil
	}
	return m, nil
}

func acceptedWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}

// intentFor maps a key press to a deck intent.
func (m Model) intentFor(msg tea.KeyMsg) (deck.Intent, bool) {
	switch {
	case key.Matches(msg, m.keys.PlayPause):
		if m.session.Snapshot().Transport.Mode == transport.Playing {
			return deck.Intent{Action: deck.ActionPause}, true
		}
		return deck.Intent{Action: deck.ActionPlay}, true
	case key.Matches(msg, m.keys.Stop):
		return deck.Intent{Action: deck.ActionStop}, true
	case key.Matches(msg, m.keys.Forward):
		return deck.Intent{Action: deck.ActionFastForward}, true
	case key.Matches(msg, m.keys.Rewind):
		return deck.Intent{Action: deck.ActionRewind}, true
	case key.Matches(msg, m.keys.Eject):
		return deck.Intent{Action: deck.ActionEject}, true
	case key.Matches(msg, m.keys.Load):
		return deck.Intent{Action: deck.ActionLoad}, true
	case key.Matches(msg, m.keys.Next):
		return deck.Intent{Action: deck.ActionNext}, true
	case key.Matches(msg, m.keys.Prev):
		return deck.Intent{Action: deck.ActionPrev}, true
	case key.Matches(msg, m.keys.Back):
		return deck.Intent{Action: deck.ActionBack}, true
	case key.Matches(msg, m.keys.Ahead):
		return deck.Intent{Action: deck.ActionForward}, true
	case key.Matches(msg, m.keys.Page):
		n := int(msg.String()[0] - '1')
		ps := m.catalog.Pages()
		if n < 0 || n >= len(ps) {
			return deck.Intent{}, false
		}
		return deck.Intent{Action: deck.ActionGoto, PageID: ps[n].ID}, true
	}
	return deck.Intent{}, false
}

// View renders the panel.
func (m Model) View() string {
	s := m.session.Snapshot()
	st := m.styles

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		st.Title.Render("TAPEDECK"), "  ",
		st.Label.Render(s.Label), "  ",
		st.Display.Render(s.Display),
	)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(m.renderTape(s))
	b.WriteString("\n")

	nav := s.Navigation
	m.row(&b, "page", st.Current.Render(nav.CurrentPageID))
	if nav.Transition != navigation.Idle {
		m.row(&b, "target", fmt.Sprintf("%s  %s %3.0f%%",
			st.Target.Render(nav.TargetPageID), nav.Transition, nav.Progress*100))
	}
	m.row(&b, "history", renderHistory(nav, st))
	if nav.IsLoading {
		m.row(&b, "tape", st.Warn.Render("loading..."))
	}

	b.WriteString("\n")
	for _, d := range m.journal.Recent(eventTail) {
		line := fmt.Sprintf("%7.3fs %s/%s %s", d.At.Seconds(), d.Source, d.Kind, d.Message)
		if d.Severity == diagnostics.SeverityWarn {
			b.WriteString(st.Warn.Render(line))
		} else {
			b.WriteString(st.Info.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(st.Status.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return st.Panel.Render(b.String())
}

func (m Model) row(b *strings.Builder, k, v string) {
	b.WriteString(m.styles.Key.Render(k))
	b.WriteString(v)
	b.WriteString("\n")
}

func (m Model) tapeWidth() int {
	if m.width > 0 && m.width-8 < defaultTapeWidth {
		return max(m.width-8, 10)
	}
	return defaultTapeWidth
}

// renderTape draws page labels over a tape line with the head at the
// display position.
func (m Model) renderTape(s deck.Snapshot) string {
	st := m.styles
	width := m.tapeWidth()
	ps := m.catalog.Pages()
	length := m.catalog.Length()
	if len(ps) == 0 || length <= 0 {
		return ""
	}

	cell := width / len(ps)
	var labels strings.Builder
	for _, p := range ps {
		name := p.ID
		if len(name) > cell-1 {
			name = name[:max(cell-1, 0)]
		}
		labels.WriteString("|")
		labels.WriteString(name)
		labels.WriteString(strings.Repeat(" ", max(cell-1-len(name), 0)))
	}

	pos := s.Position
	if s.Navigation.Transition == navigation.Idle && s.Transport.TapeLoaded {
		pos = s.Transport.Position
	}
	head := headIndex(pos, length, cell*len(ps))
	line := []rune(strings.Repeat("─", cell*len(ps)))
	left := string(line[:head])
	right := ""
	if head+1 < len(line) {
		right = string(line[head+1:])
	}

	return st.Muted.Render(labels.String()) + "\n" +
		st.Tape.Render(left) + st.Head.Render("●") + st.Tape.Render(right)
}

// headIndex maps a tape position onto a cell in [0, width).
func headIndex(pos, length float64, width int) int {
	if width <= 0 || length <= 0 {
		return 0
	}
	i := int(pos / length * float64(width))
	return min(max(i, 0), width-1)
}

func renderHistory(nav navigation.State, st Styles) string {
	parts := make([]string, len(nav.History))
	for i, id := range nav.History {
		if i == nav.HistoryIndex {
			parts[i] = st.Current.Render("[" + id + "]")
		} else {
			parts[i] = st.Muted.Render(id)
		}
	}
	return strings.Join(parts, st.Muted.Render(" › "))
}
