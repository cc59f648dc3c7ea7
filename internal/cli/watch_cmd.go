package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/repository"
	"github.com/alexanderramin/journey/internal/service"
)

// watchInterval is how often announcements are re-evaluated without any
// store change, so countdown and session triggers follow the clock.
const watchInterval = time.Minute

func newWatchCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of the current stage and announcements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			p := tea.NewProgram(newWatchModel(ctx, j, watchInterval), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}
}

type watchKeys struct {
	Quit    key.Binding
	Refresh key.Binding
	Dismiss key.Binding
}

func defaultWatchKeys() watchKeys {
	return watchKeys{
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Dismiss: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss top")),
	}
}

// watchTickMsg fires every watchInterval.
type watchTickMsg time.Time

// watchChangeMsg carries one change-feed event for the participant.
type watchChangeMsg repository.ChangeEvent

// watchFeedClosedMsg is sent once the change feed subscription ends.
type watchFeedClosedMsg struct{}

// watchLoadedMsg carries a fresh evaluation of the dashboard.
type watchLoadedMsg struct {
	stage         domain.StageKey
	stats         progress.Stats
	announcements []domain.Announcement
	at            time.Time
	err           error
}

type watchModel struct {
	ctx      context.Context
	journey  *service.Journey
	events   <-chan repository.ChangeEvent
	interval time.Duration
	keys     watchKeys
	spinner  spinner.Model

	loading       bool
	stage         domain.StageKey
	stats         progress.Stats
	announcements []domain.Announcement
	updatedAt     time.Time
	lastChange    string
	err           error
	width         int
}

func newWatchModel(ctx context.Context, j *service.Journey, interval time.Duration) watchModel {
	return watchModel{
		ctx:      ctx,
		journey:  j,
		events:   j.Watch(ctx),
		interval: interval,
		keys:     defaultWatchKeys(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(formatter.StylePurple)),
		loading:  true,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.load(false), m.tick(), m.waitForChange(), m.spinner.Tick)
}

// load evaluates the dashboard. refresh first re-reads facts and progress
// from the store so changes made elsewhere become visible.
func (m watchModel) load(refresh bool) tea.Cmd {
	ctx, j := m.ctx, m.journey
	return func() tea.Msg {
		if refresh {
			if err := j.Refresh(ctx); err != nil {
				return watchLoadedMsg{err: err}
			}
		}
		list, err := j.Announcements(ctx)
		stage := j.CurrentStage()
		return watchLoadedMsg{
			stage:         stage,
			stats:         j.StageStats(stage),
			announcements: list,
			at:            j.Now(),
			err:           err,
		}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m watchModel) waitForChange() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return watchFeedClosedMsg{}
		}
		return watchChangeMsg(ev)
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, tea.Batch(m.load(true), m.spinner.Tick)
		case key.Matches(msg, m.keys.Dismiss):
			if len(m.announcements) == 0 {
				return m, nil
			}
			if err := m.journey.DismissAnnouncement(m.announcements[0].ID); err != nil {
				m.err = err
				return m, nil
			}
			return m, m.load(false)
		}
		return m, nil

	case watchTickMsg:
		return m, tea.Batch(m.load(false), m.tick())

	case watchChangeMsg:
		m.lastChange = fmt.Sprintf("%s %s", msg.Collection, msg.Op)
		return m, tea.Batch(m.load(true), m.waitForChange())

	case watchFeedClosedMsg:
		return m, nil

	case watchLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.stage = msg.stage
		m.stats = msg.stats
		m.announcements = msg.announcements
		m.updatedAt = msg.at
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	if m.stage == "" {
		b.WriteString(m.spinner.View() + " " + formatter.Dim("Loading journey…") + "\n")
	} else {
		fmt.Fprintf(&b, "%s  %s\n", formatter.StageBadge(m.stage), formatter.Countdown(m.journey.DaysUntilStart()))
		fmt.Fprintf(&b, "%s  %s\n\n", formatter.RenderProgress(m.stats.Percent(), 24),
			formatter.Dim(fmt.Sprintf("%d/%d tasks", m.stats.Completed, m.stats.Total)))
		b.WriteString(formatter.Header("Announcements") + "\n")
		b.WriteString(formatter.FormatAnnouncements(m.announcements))
	}

	if m.err != nil {
		b.WriteString("\n" + formatter.StyleRed.Render("Error: "+m.err.Error()) + "\n")
	}

	status := ""
	if m.loading {
		status = m.spinner.View() + " "
	}
	if !m.updatedAt.IsZero() {
		status += formatter.Dim("updated " + formatter.SinceFrom(m.updatedAt, m.journey.Now()))
	}
	if m.lastChange != "" {
		status += formatter.Dim(" · last change " + m.lastChange)
	}
	help := []string{}
	for _, k := range []key.Binding{m.keys.Refresh, m.keys.Dismiss, m.keys.Quit} {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString("\n" + status + "\n" + formatter.Dim(strings.Join(help, " · ")) + "\n")
	return b.String()
}
