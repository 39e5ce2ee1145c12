package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/swap-router/business/routing/domain"
)

const (
	defaultInterval = 5 * time.Second
	historySize     = 6
)

// QuoteFunc runs one token-to-token search.
type QuoteFunc func(ctx context.Context) (*domain.TokenToTokenResult, error)

// QuoteMsg carries the outcome of one search.
type QuoteMsg struct {
	Result *domain.TokenToTokenResult
	Err    error
	Took   time.Duration
	At     time.Time
}

// RefreshMsg asks the view to quote again. Only the tick scheduled after
// the latest quote is honoured.
type RefreshMsg struct {
	gen uint64
}

// WatchConfig configures the quote watch view.
type WatchConfig struct {
	Pair     Pair
	Quote    QuoteFunc
	Interval time.Duration
	// Status reports the ledger connection; optional.
	Status func() string
}

// Model re-quotes a pair on an interval.
type Model struct {
	ctx      context.Context
	cfg      WatchConfig
	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	width    int
	quitting bool

	loading bool
	paused  bool
	tick    uint64
	quotes  uint64
	failed  uint64

	result  *domain.TokenToTokenResult
	err     error
	took    time.Duration
	lastAt  time.Time
	history []string
}

// New creates the watch model. The first quote starts on Init.
func New(ctx context.Context, cfg WatchConfig) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = PositiveValue

	return Model{
		ctx:     ctx,
		cfg:     cfg,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		loading: true,
		history: make([]string, 0, historySize),
	}
}

// Init starts the spinner and the first quote.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

func (m Model) fetch() tea.Cmd {
	ctx, quote := m.ctx, m.cfg.Quote
	return func() tea.Msg {
		started := time.Now()
		res, err := quote(ctx)
		return QuoteMsg{Result: res, Err: err, Took: time.Since(started), At: time.Now()}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	gen := m.tick
	return tea.Tick(m.cfg.Interval, func(time.Time) tea.Msg { return RefreshMsg{gen: gen} })
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, m.fetch()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.history = m.history[:0]
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RefreshMsg:
		// A manual re-quote supersedes the pending tick.
		if msg.gen != m.tick || m.loading {
			return m, nil
		}
		if m.paused {
			return m, m.scheduleRefresh()
		}
		m.loading = true
		return m, m.fetch()

	case QuoteMsg:
		m.loading = false
		m.took = msg.Took
		m.lastAt = msg.At
		m.quotes++
		if msg.Err != nil {
			m.failed++
			m.err = msg.Err
		} else {
			m.err = nil
			m.result = msg.Result
		}
		m.history = appendHistory(m.history, m.historyLine(msg))
		m.tick++
		return m, m.scheduleRefresh()
	}

	return m, nil
}

func (m Model) historyLine(msg QuoteMsg) string {
	at := msg.At.Format("15:04:05")
	if msg.Err != nil {
		return fmt.Sprintf("[%s] error: %v", at, msg.Err)
	}
	out, via := summarize(m.cfg.Pair, msg.Result)
	return fmt.Sprintf("[%s] %s via %s (%dms)", at, out, via, msg.Took.Milliseconds())
}

func summarize(p Pair, res *domain.TokenToTokenResult) (string, string) {
	switch {
	case res == nil || res.Recommendation == domain.RecommendNone:
		return "no route", "-"
	case res.Recommendation == domain.RecommendMultiHop && res.MultiHop != nil:
		return FormatAmount(res.MultiHop.ExpectedOut, p.OutDecimals) + " " + p.Out, "multi-hop"
	default:
		plan := res.Direct
		via := plan.BestSingleVenueName
		if plan.IsSplit() {
			via = fmt.Sprintf("split %s/%s", plan.Routes[0].VenueName, plan.Routes[1].VenueName)
		}
		return FormatAmount(plan.TotalExpectedOut, p.OutDecimals) + " " + p.Out, via
	}
}

func appendHistory(h []string, line string) []string {
	h = append(h, line)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	return h
}

// View renders the watch screen.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Swap Router "))
	b.WriteString("  ")
	b.WriteString(HeaderStyle.Render(m.cfg.Pair.String()))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	body := MutedValue.Render("Waiting for the first quote...")
	if m.result != nil {
		body = RenderResult(m.cfg.Pair, m.result)
	}
	if m.err != nil {
		body += "\n" + NegativeValue.Render("last quote failed: "+m.err.Error())
	}
	width := m.width - 4
	if width < 40 {
		width = 80
	}
	b.WriteString(BoxStyle.Width(width).Render(body))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("HISTORY"))
	b.WriteString("\n")
	if len(m.history) == 0 {
		b.WriteString(MutedValue.Render("  (empty)"))
		b.WriteString("\n")
	}
	for _, line := range m.history {
		b.WriteString(MutedValue.Render("  " + line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.paused {
		b.WriteString(WarningValue.Render("PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.loading {
		parts = append(parts, m.spinner.View()+" quoting")
	} else {
		parts = append(parts, PositiveValue.Render("● idle"))
	}
	parts = append(parts, fmt.Sprintf("Quotes: %d", m.quotes))
	if m.failed > 0 {
		parts = append(parts, NegativeValue.Render(fmt.Sprintf("Failed: %d", m.failed)))
	}
	if m.took > 0 {
		parts = append(parts, fmt.Sprintf("Latency: %dms", m.took.Milliseconds()))
	}
	parts = append(parts, fmt.Sprintf("Every %s", m.cfg.Interval))
	if m.cfg.Status != nil {
		parts = append(parts, AccentValue.Render("Ledger: "+m.cfg.Status()))
	}
	if !m.lastAt.IsZero() {
		ago := time.Since(m.lastAt).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}
	return strings.Join(parts, "  │  ")
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(ctx context.Context, cfg WatchConfig) error {
	p := tea.NewProgram(New(ctx, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
