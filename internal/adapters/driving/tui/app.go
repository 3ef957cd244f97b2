package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Rows taken by everything except the transcript.
const chromeHeight = 6

// Exchange is one question and its answer in the transcript.
type Exchange struct {
	Question string
	Answer   string
	Err      error
	Elapsed  time.Duration
	Pending  bool
}

// App is the main TUI application following the Elm architecture.
// It ingests one document on start and then answers questions against it,
// one at a time.
type App struct {
	ports       *Ports
	ctx         context.Context
	documentURL string

	styles   *styles.Styles
	keymap   *keymap.KeyMap
	input    *input.QuestionInput
	status   *status.Bar
	spinner  spinner.Model
	viewport viewport.Model

	session    driving.Session
	transcript []Exchange
	busy       bool
	err        error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a TUI for the document at documentURL.
func NewApp(ports *Ports, documentURL string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if strings.TrimSpace(documentURL) == "" {
		return nil, ErrMissingDocument
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		documentURL: documentURL,
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		status:      status.NewBar(s, km),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Spinner)),
		viewport:    viewport.New(80, 18),
		busy:        true,
	}, nil
}

// WithContext sets the context used for ingestion and questions.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model. It starts ingestion.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docqa"),
		a.spinner.Tick,
		a.openSession(),
		a.input.Init(),
	)
}

func (a *App) openSession() tea.Cmd {
	ctx, sessions, url := a.ctx, a.ports.Sessions, a.documentURL
	return func() tea.Msg {
		s, err := sessions.Open(ctx, url)
		return messages.SessionOpened{Session: s, Err: err}
	}
}

func (a *App) ask(index int, question string) tea.Cmd {
	ctx, session := a.ctx, a.session
	return func() tea.Msg {
		start := time.Now()
		answer, err := session.Ask(ctx, question)
		return messages.AnswerReceived{Index: index, Answer: answer, Err: err, Elapsed: time.Since(start)}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.SessionOpened:
		a.busy = false
		if msg.Err != nil {
			a.err = msg.Err
			a.status.SetState(status.StateError)
			a.status.SetMessage(msg.Err.Error())
		} else {
			a.session = msg.Session
			a.status.SetState(status.StateReady)
			a.status.SetChunks(msg.Session.ChunkCount())
		}
		a.refresh()
		return a, nil

	case messages.AnswerReceived:
		if msg.Index >= 0 && msg.Index < len(a.transcript) {
			ex := &a.transcript[msg.Index]
			ex.Answer = msg.Answer
			ex.Err = msg.Err
			ex.Elapsed = msg.Elapsed
			ex.Pending = false
		}
		a.busy = false
		a.status.SetState(status.StateReady)
		a.status.SetAnswered(a.answered())
		a.refresh()
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		a.status.SetSpinner(a.spinner.View())
		return a, cmd
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.ScrollUp):
		a.viewport.LineUp(a.viewport.Height)
		return a, nil

	case keymap.Matches(k, a.keymap.ScrollDown):
		a.viewport.LineDown(a.viewport.Height)
		return a, nil

	case keymap.Matches(k, a.keymap.Clear):
		if !a.busy {
			a.transcript = nil
			a.status.SetAnswered(0)
			a.refresh()
		}
		return a, nil

	case keymap.Matches(k, a.keymap.Ask):
		question := strings.TrimSpace(a.input.Value())
		if a.busy || a.session == nil || question == "" {
			return a, nil
		}
		a.transcript = append(a.transcript, Exchange{Question: question, Pending: true})
		a.busy = true
		a.status.SetState(status.StateAsking)
		a.input.Reset()
		a.refresh()
		return a, tea.Batch(a.spinner.Tick, a.ask(len(a.transcript)-1, question))
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("docqa"),
		a.styles.Document.Render(a.documentURL),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.viewport.View(),
		a.input.View(),
		a.status.View(),
	)
}

func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if a.session == nil {
		if a.err != nil {
			return a.styles.Error.Render("Could not ingest document: " + a.err.Error())
		}
		return a.styles.Muted.Render("Fetching, chunking and indexing the document...")
	}
	if len(a.transcript) == 0 {
		return a.styles.Muted.Render("Document ready. Type a question and press enter.")
	}

	wrap := a.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	for i, ex := range a.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(a.styles.Question.Render(fmt.Sprintf("Q%d: %s", i+1, ex.Question)))
		b.WriteString("\n")

		switch {
		case ex.Pending:
			b.WriteString(a.styles.Muted.Render("  ..."))
		case ex.Err != nil:
			b.WriteString(a.styles.Error.Render("  " + ex.Err.Error()))
		case ex.Answer == domain.InsufficientInformationAnswer:
			b.WriteString(a.styles.Warning.Width(wrap).Render(ex.Answer))
		default:
			b.WriteString(a.styles.Answer.Width(wrap).Render(ex.Answer))
		}
		if !ex.Pending {
			b.WriteString("\n")
			b.WriteString(a.styles.Muted.Render(fmt.Sprintf("  (%s)", ex.Elapsed.Round(time.Millisecond))))
		}
	}
	return b.String()
}

func (a *App) answered() int {
	n := 0
	for _, ex := range a.transcript {
		if !ex.Pending {
			n++
		}
	}
	return n
}

// Close releases the session, if one was opened.
func (a *App) Close(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	return a.session.Close(ctx)
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 3)
	a.refresh()
}

// Session returns the open session, or nil while ingesting or after a failure.
func (a *App) Session() driving.Session {
	return a.session
}

// Transcript returns the questions asked so far.
func (a *App) Transcript() []Exchange {
	return a.transcript
}

// Busy reports whether ingestion or a question is in flight.
func (a *App) Busy() bool {
	return a.busy
}

// Err returns the ingestion error, if any.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}
