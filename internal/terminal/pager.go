package terminal

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/okian/runboard/internal/domain/dashboard"
	"github.com/okian/runboard/internal/domain/pagination"
)

const pagerHelp = "←/h previous • →/l next • 1-9 jump • g/G first/last • r refresh • q quit"

// FetchFunc runs one fetch cycle and returns its result and the user count.
type FetchFunc func(ctx context.Context) (dashboard.Result, *int)

// snapshotMsg delivers a finished fetch cycle to the pager.
type snapshotMsg struct {
	result dashboard.Result
	count  *int
}

// PagerModel is a Bubble Tea model that pages through one fetch cycle. Page
// changes never refetch; only "r" starts a new cycle.
type PagerModel struct {
	ctx    context.Context
	fetch  FetchFunc
	styles Styles

	result dashboard.Result
	count  *int
	state  pagination.State
	view   dashboard.View

	// Loading is true while a fetch cycle is in flight.
	Loading bool

	// Quit indicates the user left the pager.
	Quit bool
}

// NewPagerModel creates a pager that fetches with fetch and shows
// itemsPerPage rows per page.
func NewPagerModel(ctx context.Context, fetch FetchFunc, itemsPerPage int, styles Styles) PagerModel {
	m := PagerModel{
		ctx:     ctx,
		fetch:   fetch,
		styles:  styles,
		state:   pagination.State{CurrentPage: 1, ItemsPerPage: itemsPerPage},
		Loading: true,
	}
	m.rebuild()
	return m
}

// Current returns the view-model currently displayed.
func (m PagerModel) Current() dashboard.View { return m.view }

// Init implements tea.Model.
func (m PagerModel) Init() tea.Cmd {
	return m.load()
}

func (m PagerModel) load() tea.Cmd {
	ctx, fetch := m.ctx, m.fetch
	return func() tea.Msg {
		result, count := fetch(ctx)
		return snapshotMsg{result: result, count: count}
	}
}

// Update implements tea.Model.
func (m PagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.result, m.count = msg.result, msg.count
		m.Loading = false
		m.rebuild()
		return m, nil

	case tea.KeyMsg:
		total := m.view.TotalPages
		switch key := msg.String(); key {
		case "ctrl+c", "q", "esc":
			m.Quit = true
			return m, tea.Quit

		case "left", "h", "p":
			m.state = m.state.Previous(total)

		case "right", "l", "n":
			m.state = m.state.Next(total)

		case "home", "g":
			m.state = m.state.Select(1, total)

		case "end", "G":
			m.state = m.state.Select(total, total)

		case "r":
			if m.Loading {
				return m, nil
			}
			m.Loading = true
			return m, m.load()

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.state = m.state.Select(int(key[0]-'0'), total)

		default:
			return m, nil
		}
		m.rebuild()
	}
	return m, nil
}

func (m *PagerModel) rebuild() {
	m.view = dashboard.Build(m.result, m.count, m.state)
	m.state = m.view.State()
}

// View implements tea.Model.
func (m PagerModel) View() string {
	var b strings.Builder
	if m.Loading && m.view.TotalRuns == 0 && m.view.Error == "" {
		b.WriteString("\n  Loading workflow runs...\n")
		return b.String()
	}

	b.WriteString("\n")
	Render(&b, m.view, m.styles)
	b.WriteString("\n")
	help := pagerHelp
	if m.Loading {
		help = "refreshing... • " + help
	}
	b.WriteString(m.styles.Muted.Render(help))
	b.WriteString("\n")
	return b.String()
}
