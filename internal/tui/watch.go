// Package tui renders a live terminal view of the current experiment.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/state"
	"github.com/emiliopalmerini/mlab/internal/util"
)

const previewLength = 160

// Canceller requests cancellation of the watched experiment.
type Canceller func(ctx context.Context) error

type stateChangedMsg struct {
	snap state.Snapshot
}

type updatesClosedMsg struct{}

type cancelResultMsg struct {
	err error
}

// Watch follows the store until the experiment settles or the user quits.
type Watch struct {
	store      *state.Store
	updates    <-chan struct{}
	cancel     Canceller
	exitOnDone bool

	spinner spinner.Model
	styles  *Styles
	help    HelpBar

	snap   state.Snapshot
	notice string
	err    error
	done   bool
	width  int
}

type WatchOption func(*Watch)

// WithCanceller binds the c key to cancel.
func WithCanceller(c Canceller) WatchOption {
	return func(w *Watch) { w.cancel = c }
}

// WithExitOnDone quits once a terminal status has been published.
func WithExitOnDone(exit bool) WatchOption {
	return func(w *Watch) { w.exitOnDone = exit }
}

// NewWatch creates the model. updates is usually obtained from store.Subscribe.
func NewWatch(store *state.Store, updates <-chan struct{}, opts ...WatchOption) *Watch {
	styles := DefaultStyles()
	w := &Watch{
		store:   store,
		updates: updates,
		styles:  styles,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Live)),
		snap:    store.Snapshot(),
	}
	for _, opt := range opts {
		opt(w)
	}

	bindings := []KeyBinding{{Key: "q", Desc: "quit"}}
	if w.cancel != nil {
		bindings = append(bindings, KeyBinding{Key: "c", Desc: "cancel experiment"})
	}
	w.help = NewHelpBar(bindings...)
	return w
}

// Snapshot returns the last state rendered.
func (w *Watch) Snapshot() state.Snapshot { return w.snap }

// Done reports whether the model quit because the experiment settled.
func (w *Watch) Done() bool { return w.done }

func (w *Watch) Init() tea.Cmd {
	return tea.Batch(w.spinner.Tick, w.waitForChange())
}

func (w *Watch) waitForChange() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.updates; !ok {
			return updatesClosedMsg{}
		}
		return stateChangedMsg{snap: w.store.Snapshot()}
	}
}

func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return w, tea.Quit
		case "c":
			if w.cancel != nil && w.snap.CurrentExperimentID != "" {
				w.notice = "cancelling…"
				return w, w.requestCancel()
			}
		}

	case tea.WindowSizeMsg:
		w.width = msg.Width

	case stateChangedMsg:
		w.snap = msg.snap
		if w.exitOnDone && settled(w.snap) {
			w.done = true
			return w, tea.Quit
		}
		return w, w.waitForChange()

	case updatesClosedMsg:
		return w, tea.Quit

	case cancelResultMsg:
		w.err = msg.err
		w.notice = ""
		if msg.err == nil {
			w.notice = "cancellation requested"
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}
	return w, nil
}

func (w *Watch) requestCancel() tea.Cmd {
	return func() tea.Msg {
		return cancelResultMsg{err: w.cancel(context.Background())}
	}
}

// settled is true once polling stopped on a terminal status.
func settled(s state.Snapshot) bool {
	return !s.Polling && !s.Loading && s.StatusData != nil && s.StatusData.Status.IsTerminal()
}

func (w *Watch) View() string {
	var b strings.Builder
	s := w.styles

	title := s.Title.Render("mlab")
	if w.snap.CurrentExperimentID == "" {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", s.Muted.Render("no current experiment")))
		b.WriteString("\n")
		b.WriteString(w.help.View())
		return b.String()
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", s.Subtitle.Render(w.snap.CurrentExperimentID))
	b.WriteString(header + "\n")

	status := "waiting"
	if w.snap.StatusData != nil {
		status = string(w.snap.StatusData.Status)
	}
	line := w.statusStyle(w.snap).Render(status)
	if w.snap.Polling || w.snap.Loading {
		line = w.spinner.View() + " " + line
	}
	if w.snap.StatusData != nil {
		line += s.Muted.Render(fmt.Sprintf("  %d responses", len(w.snap.StatusData.Responses)))
	}
	b.WriteString(line + "\n")

	if w.snap.OriginalPrompt != "" {
		b.WriteString(s.Body.Render("prompt: "+util.Truncate(w.snap.OriginalPrompt, previewLength)) + "\n")
	}
	if w.snap.PollingError != "" {
		b.WriteString(s.Error.Render("error: "+w.snap.PollingError) + "\n")
	}
	if w.err != nil {
		b.WriteString(s.Error.Render("cancel failed: "+w.err.Error()) + "\n")
	}
	if w.notice != "" {
		b.WriteString(s.Warning.Render(w.notice) + "\n")
	}

	for _, r := range w.snap.Results {
		b.WriteString(w.renderResult(r) + "\n")
	}

	b.WriteString(w.help.View())
	return b.String()
}

func (w *Watch) renderResult(r domain.Result) string {
	s := w.styles
	head := s.Bold.Render(r.Model) + s.Muted.Render(fmt.Sprintf("  %s  t=%.2f p=%.2f  %s tokens  %s",
		domain.ProviderDisplayName(r.Provider), r.Temperature, r.TopP,
		util.FormatTokens(r.TokensUsed), util.FormatSeconds(r.ExecutionTime)))

	var body string
	switch {
	case !r.Success && r.Error != nil:
		body = s.Error.Render(*r.Error)
	case r.Response == "":
		body = s.Muted.Render("No response available")
	default:
		body = s.Body.Render(util.Truncate(r.Response, previewLength))
	}

	card := s.Card
	if w.width > 4 {
		card = card.Width(w.width - 4)
	}
	return card.Render(head + "\n" + body)
}

func (w *Watch) statusStyle(snap state.Snapshot) lipgloss.Style {
	if snap.StatusData == nil {
		return w.styles.Live
	}
	switch snap.StatusData.Status {
	case domain.StatusCompleted:
		return w.styles.Success
	case domain.StatusFailed:
		return w.styles.Error
	case domain.StatusCancelled:
		return w.styles.Warning
	default:
		return w.styles.Live
	}
}

// Run shows the watch view until the user quits, ctx ends or, with
// WithExitOnDone, the experiment settles. It returns the final snapshot.
func Run(ctx context.Context, store *state.Store, opts ...WatchOption) (state.Snapshot, error) {
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	model := NewWatch(store, updates, opts...)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return store.Snapshot(), nil
		}
		return store.Snapshot(), fmt.Errorf("failed to run watch view: %w", err)
	}
	return store.Snapshot(), nil
}
