// Package tui renders an interactive search: live progress while variants
// are fetched, then a browsable table of leads.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/search"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
	events "github.com/kvora49/Lead-finder-sub001/internal/progress"
)

// Searcher runs one search.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest, opts search.Options) (*search.Response, error)
}

type eventMsg events.Event

type searchDoneMsg struct {
	resp *search.Response
	err  error
}

type tickMsg time.Time

// sharedState lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	cancel context.CancelFunc
}

// Model is the bubbletea model of one interactive search.
type Model struct {
	req    model.SearchRequest
	run    func(ctx context.Context) (*search.Response, error)
	events events.Chan
	ctx    context.Context
	shared *sharedState

	bar   progress.Model
	table table.Model
	start time.Time
	last  events.Event

	done   bool
	resp   *search.Response
	err    error
	width  int
	height int
}

// NewModel wires a search into a model. Progress events are received over
// a buffered channel so the search never waits on rendering, and stops
// waiting altogether once the model is cancelled.
func NewModel(ctx context.Context, s Searcher, req model.SearchRequest, opts search.Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	ch := events.NewChan(64, ctx.Done())
	opts.Reporter = events.Multi(opts.Reporter, ch)

	return Model{
		req:    req,
		events: ch,
		ctx:    ctx,
		shared: &sharedState{cancel: cancel},
		run: func(ctx context.Context) (*search.Response, error) {
			return s.Search(ctx, req, opts)
		},
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		start: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startSearch(), waitForEvent(m.events), tickCmd())
}

func (m Model) startSearch() tea.Cmd {
	ctx, run := m.ctx, m.run
	return func() tea.Msg {
		resp, err := run(ctx)
		return searchDoneMsg{resp: resp, err: err}
	}
}

func waitForEvent(ch events.Chan) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch.C)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func terminal(p events.Phase) bool {
	return p == events.PhaseDone || p == events.PhaseCached || p == events.PhaseError
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.done {
			m.table.SetHeight(m.tableHeight())
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.shared.cancel()
			if !m.done {
				m.err = context.Canceled
			}
			return m, tea.Quit
		case "q", "esc":
			if m.done {
				return m, tea.Quit
			}
		}
		if m.done {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
	case eventMsg:
		m.last = events.Event(msg)
		if terminal(m.last.Phase) {
			return m, nil
		}
		return m, waitForEvent(m.events)
	case searchDoneMsg:
		m.done = true
		m.resp, m.err = msg.resp, msg.err
		if m.resp != nil {
			m.table = buildTable(m.resp.Results, m.tableHeight())
		}
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	var pm tea.Model
	pm, cmd = m.bar.Update(msg)
	m.bar = pm.(progress.Model)
	return m, cmd
}

func (m Model) tableHeight() int {
	h := m.height - 12
	if h < 5 {
		h = 10
	}
	return h
}

func buildTable(leads []model.Lead, height int) table.Model {
	columns := []table.Column{
		{Title: "Name", Width: 30},
		{Title: "Address", Width: 40},
		{Title: "Phone", Width: 16},
		{Title: "Rating", Width: 10},
		{Title: "Status", Width: 20},
	}
	rows := make([]table.Row, len(leads))
	for i, l := range leads {
		rating := ""
		if l.Rating != nil {
			rating = fmt.Sprintf("%.1f", *l.Rating)
			if l.RatingCount != nil {
				rating += fmt.Sprintf(" (%d)", *l.RatingCount)
			}
		}
		rows[i] = table.Row{
			l.Name,
			l.Address,
			deref(l.Phone),
			rating,
			strings.ToLower(strings.ReplaceAll(l.Status, "_", " ")),
		}
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(tableStyles())
	return t
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Searching: %q in %s", m.req.Keyword, m.req.PlanLocation())))
	b.WriteString("\n")

	if m.done && m.err == nil && m.resp != nil {
		if m.resp.Cached {
			b.WriteString(cachedStyle.Render(fmt.Sprintf("%d leads from cache", len(m.resp.Results))))
		} else {
			b.WriteString(successStyle.Render(fmt.Sprintf("Complete! %d leads, %d API calls in %s",
				len(m.resp.Results), m.resp.APICalls, m.resp.Duration.Truncate(time.Millisecond))))
		}
		b.WriteString("\n\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • q quit"))
		return b.String()
	}

	b.WriteString(statsBox.Render(m.renderStats()))
	b.WriteString("\n\n")

	var pct float64
	if m.last.Total > 0 {
		pct = float64(m.last.Current) / float64(m.last.Total)
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil && !errors.Is(m.err, context.Canceled):
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q quit"))
	case m.last.Message != "":
		b.WriteString(messageStyle.Render(m.last.Message))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("ctrl+c cancel"))
	default:
		b.WriteString(helpStyle.Render("ctrl+c cancel"))
	}
	return b.String()
}

func (m Model) renderStats() string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statValue.Render(value))
		sb.WriteString("\n")
	}
	row("Variant:", fmt.Sprintf("%d/%d", m.last.Current, m.last.Total))
	row("Found:", fmt.Sprintf("%d", m.last.Found))
	row("API calls:", fmt.Sprintf("%d", m.last.APICalls))
	row("Elapsed:", time.Since(m.start).Truncate(time.Second).String())
	return strings.TrimSuffix(sb.String(), "\n")
}

// Result returns the outcome once the program has exited.
func (m Model) Result() (*search.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !m.done {
		return nil, context.Canceled
	}
	return m.resp, nil
}

// Run shows the search in the terminal and returns its outcome.
func Run(ctx context.Context, s Searcher, req model.SearchRequest, opts search.Options) (*search.Response, error) {
	m := NewModel(ctx, s, req, opts)
	defer m.shared.cancel()

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).Result()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
