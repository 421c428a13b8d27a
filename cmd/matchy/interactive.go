package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matchylabs/matchy-go"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	db       *matchy.Database
	dbPath   string
	opts     *matchy.OpenOptions
	input    textinput.Model
	last     *matchy.QueryResult
	lastQ    string
	history  []string
	showInfo bool
	state    modelState
}

type modelState int

const (
	stateLoading modelState = iota
	stateQuery
	stateResult
)

func newInteractiveModel(dbPath string, opts *matchy.OpenOptions) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "IP address, literal, or pattern"
	ti.Prompt = "query> "
	ti.Width = 48
	ti.Focus()
	return &interactiveModel{
		dbPath: dbPath,
		opts:   opts,
		input:  ti,
		state:  stateLoading,
	}
}

type openedMsg struct {
	err error
	db  *matchy.Database
}

type queriedMsg struct {
	err   error
	query string
	res   *matchy.QueryResult
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.openDatabase
}

func (m *interactiveModel) openDatabase() tea.Msg {
	db, err := matchy.OpenWithOptions(m.dbPath, m.opts)
	return openedMsg{db: db, err: err}
}

func (m *interactiveModel) runQuery() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return nil
	}
	return func() tea.Msg {
		res, err := m.db.Query(query)
		return queriedMsg{query: query, res: res, err: err}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.db != nil {
				m.db.Close()
			}
			return m, tea.Quit

		case "esc":
			if m.state == stateResult {
				m.state = stateQuery
				m.input.SetValue("")
				m.input.Focus()
				return m, nil
			}
			if m.db != nil {
				m.db.Close()
			}
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateQuery:
				return m, m.runQuery()
			case stateResult:
				m.state = stateQuery
				m.input.SetValue("")
				m.input.Focus()
			}
			return m, nil

		case "ctrl+s":
			m.showInfo = !m.showInfo
			return m, nil
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.db = msg.db
		m.state = stateQuery

	case queriedMsg:
		m.err = msg.err
		m.last = msg.res
		m.lastQ = msg.query
		if msg.err == nil {
			m.history = append(m.history, msg.query)
			if len(m.history) > 10 {
				m.history = m.history[len(m.history)-10:]
			}
		}
		m.state = stateResult
		m.input.Blur()
	}

	if m.state == stateQuery {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.db == nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}
	if m.state == stateLoading {
		return "Opening database..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("matchy"))
	b.WriteString(" ")
	b.WriteString(m.dbPath)
	b.WriteString("\n\n")

	switch m.state {
	case stateQuery:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if len(m.history) > 0 {
			b.WriteString("\nRecent: ")
			b.WriteString(helpStyle.Render(strings.Join(m.history, ", ")))
			b.WriteString("\n")
		}

	case stateResult:
		b.WriteString(fmt.Sprintf("Query %s\n\n", keyStyle.Render(m.lastQ)))
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case !m.last.Found():
			b.WriteString(missStyle.Render("no match"))
		default:
			b.WriteString(matchStyle.Render(fmt.Sprintf("match (prefix length %d)", m.last.PrefixLen())))
			b.WriteString("\n")
			b.WriteString(m.renderData(m.last.Data()))
		}
		b.WriteString("\n")
	}

	if m.showInfo {
		b.WriteString("\n")
		b.WriteString(m.renderStats())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter query • esc back • ctrl+s stats • ctrl+c quit"))
	return b.String()
}

func (m *interactiveModel) renderData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(keyStyle.Render(k))
		b.WriteString(fmt.Sprintf(": %v\n", data[k]))
	}
	return b.String()
}

func (m *interactiveModel) renderStats() string {
	s, err := m.db.Stats()
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("stats: %v", err))
	}
	return helpStyle.Render(fmt.Sprintf(
		"queries %d (%d matched) • cache %.0f%% hit rate • %d ip / %d string",
		s.TotalQueries, s.QueriesWithMatch, s.CacheHitRate()*100,
		s.IPQueries, s.StringQueries,
	))
}

func runInteractive(dbPath string, opts *matchy.OpenOptions) error {
	p := tea.NewProgram(newInteractiveModel(dbPath, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
