// Package tui is the interactive front end: it feeds model pickers from
// the endpoints, confirms the run parameters, then drives the orchestrator
// on a worker goroutine while polling its event queue for display.
//
// Everything the workers produce travels through one chat.Queue: model
// listings, download progress, turns, and errors. The bubbletea loop
// drains it on a timer from program start.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"github.com/shanev77/crosschat/src/aisdk"
	"github.com/shanev77/crosschat/src/chat"
	"github.com/shanev77/crosschat/src/config"
	"github.com/shanev77/crosschat/src/ollama"
	"github.com/shanev77/crosschat/src/transcript"
)

const pollInterval = 100 * time.Millisecond

type stage int

const (
	stageLoadingModels stage = iota
	stagePickInitiator
	stagePickResponder
	stagePulling
	stageTopic
	stageRunning
	stageFinished
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Run starts the interactive front end and blocks until it exits.
func Run(cfg config.Config, logger *slog.Logger) error {
	m := newModel(cfg, logger)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type runDoneMsg struct {
	result chat.Result
	err    error
}

type pullDoneMsg struct {
	side int
	tag  string
	err  error
}

type tickMsg time.Time

type model struct {
	cfg    config.Config
	logger *slog.Logger

	stage  stage
	width  int
	height int

	sp spinner.Model
	ti textinput.Model
	vp viewport.Model

	clients  [2]*ollama.Client
	models   [2][]string
	loaded   int
	loadErrs []string
	picking  int
	status   string
	pullLine string

	turnsLeft int

	queue  *chat.Queue
	runner *chat.Runner
	done   chan runDoneMsg

	lines []string
	err   error
}

func newModel(cfg config.Config, logger *slog.Logger) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ti := textinput.New()
	ti.CharLimit = 256

	m := &model{
		cfg:    cfg,
		logger: logger.With("component", "tui"),
		stage:  stageLoadingModels,
		sp:     sp,
		ti:     ti,
		queue:  chat.NewQueue(),
		done:   make(chan runDoneMsg, 1),
		status: "Fetching model lists...",
	}

	m.clients[0] = ollama.NewClient(ollama.Config{
		BaseURL: cfg.InitiatorURL, Timeout: cfg.Timeout,
		RetryCount: cfg.Retries, RetryDelay: cfg.RetryBackoff, Logger: logger,
	})
	m.clients[1] = ollama.NewClient(ollama.Config{
		BaseURL: cfg.ResponderURL, Timeout: cfg.Timeout,
		RetryCount: cfg.Retries, RetryDelay: cfg.RetryBackoff, Logger: logger,
	})
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.sp.Tick, tick(), m.fetchModelsCmd(0), m.fetchModelsCmd(1))
}

// baseEvent stamps an event emitted outside a run; such events carry no
// run ID.
func baseEvent(typ chat.EventType) chat.BaseEvent {
	return chat.BaseEvent{Type: typ, Timestamp: time.Now()}
}

// fetchModelsCmd lists one endpoint's models on a worker and delivers the
// outcome through the event queue. A listing event is posted even on
// failure so the loading stage can tell when both sides have reported.
func (m *model) fetchModelsCmd(side int) tea.Cmd {
	client := m.clients[side]
	queue := m.queue
	return func() tea.Msg {
		models, err := client.ListModels(context.Background())
		if err != nil {
			queue.Send(chat.RunErrorEvent{BaseEvent: baseEvent(chat.EventRunError), Err: err})
		}
		queue.Send(chat.ModelsLoadedEvent{
			BaseEvent: baseEvent(chat.EventModelsLoaded),
			Endpoint:  client.Endpoint(),
			Models:    models,
		})
		return nil
	}
}

// pullCmd downloads a model on a worker, streaming each progress record
// through the event queue.
func (m *model) pullCmd(side int, tag string) tea.Cmd {
	client := m.clients[side]
	queue := m.queue
	return func() tea.Msg {
		err := client.Pull(context.Background(), tag, func(p aisdk.PullProgress) {
			queue.Send(chat.PullProgressEvent{
				BaseEvent: baseEvent(chat.EventPullProgress),
				Endpoint:  client.Endpoint(),
				Line:      p.String(),
			})
		})
		return pullDoneMsg{side: side, tag: tag, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitRunDone(done chan runDoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp = viewport.New(msg.Width, max(4, msg.Height-6))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.runner != nil && m.stage == stageRunning {
				m.runner.Stop()
				m.status = "Stopping after the current turn..."
				return m, nil
			}
			return m, tea.Quit
		case "s":
			if m.stage == stageRunning {
				m.runner.Stop()
				m.status = "Stopping after the current turn..."
				return m, nil
			}
		case "q":
			if m.stage == stageFinished {
				return m, tea.Quit
			}
		case "enter":
			if cmd := m.handleEnter(); cmd != nil {
				return m, cmd
			}
		}
		if m.stage == stagePickInitiator || m.stage == stagePickResponder || m.stage == stageTopic {
			var cmd tea.Cmd
			m.ti, cmd = m.ti.Update(msg)
			return m, cmd
		}

	case tickMsg:
		m.drainEvents()
		if m.stage != stageFinished {
			cmds = append(cmds, tick())
		}

	case pullDoneMsg:
		m.drainEvents()
		if msg.err != nil {
			m.picking = msg.side
			if msg.side == 0 {
				m.stage = stagePickInitiator
			} else {
				m.stage = stagePickResponder
			}
			m.preparePicker()
			m.status = fmt.Sprintf("Download of %s failed: %v", msg.tag, msg.err)
			return m, nil
		}
		m.models[msg.side] = append(m.models[msg.side], msg.tag)
		slices.Sort(m.models[msg.side])
		m.acceptPick(msg.tag)

	case runDoneMsg:
		m.drainEvents()
		m.stage = stageFinished
		if msg.err != nil {
			m.err = msg.err
			m.status = "Run failed."
		} else if msg.result.Stopped {
			m.status = fmt.Sprintf("Stopped after %d turns. Press q to quit.", msg.result.Turns)
		} else {
			m.status = fmt.Sprintf("Conversation complete (%d turns). Press q to quit.", msg.result.Turns)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// enterPickStage moves past loading, skipping pickers for any side whose
// model was given up front.
func (m *model) enterPickStage() {
	if m.cfg.InitiatorModel != "" && m.cfg.ResponderModel != "" {
		m.enterTopicStage()
		return
	}
	if m.cfg.InitiatorModel == "" {
		m.stage = stagePickInitiator
		m.picking = 0
	} else {
		m.stage = stagePickResponder
		m.picking = 1
	}
	m.preparePicker()
}

func (m *model) preparePicker() {
	m.ti.SetValue("")
	m.ti.Placeholder = "number or model tag"
	m.ti.Focus()
	name := m.cfg.InitiatorName
	if m.picking == 1 {
		name = m.cfg.ResponderName
	}
	m.status = fmt.Sprintf("Pick a model for %s.", name)
}

func (m *model) enterTopicStage() {
	m.stage = stageTopic
	m.ti.SetValue(m.cfg.Topic)
	m.ti.Placeholder = "conversation topic"
	m.ti.Focus()
	m.status = "Confirm the topic and press enter to start."
}

func (m *model) handleEnter() tea.Cmd {
	switch m.stage {
	case stagePickInitiator, stagePickResponder:
		choice := m.resolvePick(strings.TrimSpace(m.ti.Value()))
		if choice == "" {
			m.status = "Invalid selection. Try again."
			return nil
		}
		if !slices.Contains(m.models[m.picking], choice) {
			return m.startPull(choice)
		}
		m.acceptPick(choice)
		return nil

	case stageTopic:
		if topic := strings.TrimSpace(m.ti.Value()); topic != "" {
			m.cfg.Topic = topic
		}
		return m.startRun()
	}
	return nil
}

// resolvePick maps a numeric selection onto the fetched list, or accepts
// a manually typed model tag.
func (m *model) resolvePick(input string) string {
	if input == "" {
		return ""
	}
	list := m.models[m.picking]
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1]
		}
		return ""
	}
	return input
}

// acceptPick records the chosen model for the side being picked and
// advances to the next stage.
func (m *model) acceptPick(choice string) {
	if m.picking == 0 {
		m.cfg.InitiatorModel = choice
		if m.cfg.ResponderModel == "" {
			m.stage = stagePickResponder
			m.picking = 1
			m.preparePicker()
			return
		}
	} else {
		m.cfg.ResponderModel = choice
	}
	m.enterTopicStage()
}

// startPull downloads a manually typed tag the endpoint doesn't have yet;
// on success the tag becomes the side's pick.
func (m *model) startPull(tag string) tea.Cmd {
	m.stage = stagePulling
	m.pullLine = ""
	m.ti.Blur()
	m.status = fmt.Sprintf("Downloading %s...", tag)
	return m.pullCmd(m.picking, tag)
}

func (m *model) startRun() tea.Cmd {
	if err := config.NewValidator().Validate(&m.cfg); err != nil {
		m.err = err
		m.stage = stageFinished
		m.status = "Invalid configuration. Press q to quit."
		return nil
	}

	fs := afero.NewOsFs()
	path := transcript.Uniquify(fs, m.cfg.Transcript, m.cfg.InitiatorModel, m.cfg.ResponderModel, time.Now())
	writer, err := transcript.NewWriter(fs, path)
	if err != nil {
		m.err = err
		m.stage = stageFinished
		return nil
	}
	if err := writer.WriteHeader(transcript.Header{
		Started:   time.Now(),
		Initiator: transcript.Side{Name: m.cfg.InitiatorName, Endpoint: m.cfg.InitiatorURL, Model: m.cfg.InitiatorModel},
		Responder: transcript.Side{Name: m.cfg.ResponderName, Endpoint: m.cfg.ResponderURL, Model: m.cfg.ResponderModel},
		Topic:     m.cfg.Topic,
	}); err != nil {
		writer.Close()
		m.err = err
		m.stage = stageFinished
		return nil
	}

	initiator := chat.NewParticipant(m.cfg.InitiatorName, m.cfg.ResponderName, m.cfg.InitiatorModel, m.clients[0], m.cfg.InitiatorURL)
	responder := chat.NewParticipant(m.cfg.ResponderName, m.cfg.InitiatorName, m.cfg.ResponderModel, m.clients[1], m.cfg.ResponderURL)

	m.runner = chat.NewRunner(chat.RunConfig{
		Topic:         m.cfg.Topic,
		Turns:         m.cfg.Turns,
		Temperature:   m.cfg.Temperature,
		NumPredict:    m.cfg.NumPredict,
		HistoryWindow: m.cfg.HistoryWindow,
		Delay:         m.cfg.Delay,
	}, initiator, responder, writer, m.queue, m.logger)

	m.stage = stageRunning
	m.turnsLeft = m.cfg.Turns
	m.ti.Blur()
	m.status = "Running... press s to stop."
	m.appendLine(faintStyle.Render("Transcript: " + path))

	runner := m.runner
	done := m.done
	go func() {
		result, err := runner.Run(context.Background())
		done <- runDoneMsg{result: result, err: err}
	}()

	return waitRunDone(done)
}

// drainEvents pulls everything the workers queued since the last poll.
func (m *model) drainEvents() {
	for _, event := range m.queue.Drain() {
		switch e := event.(type) {
		case chat.ModelsLoadedEvent:
			m.loaded++
			for i, client := range m.clients {
				if client.Endpoint() == e.Endpoint {
					m.models[i] = e.Models
				}
			}
			if m.stage == stageLoadingModels && m.loaded >= 2 {
				m.enterPickStage()
			}
		case chat.PullProgressEvent:
			if m.stage == stagePulling {
				m.pullLine = e.Line
			} else {
				m.appendLine(faintStyle.Render(e.Line))
			}
		case chat.TurnsRemainingEvent:
			m.turnsLeft = e.Remaining
		case chat.TurnProducedEvent:
			m.appendLine("")
			m.appendLine(speakerStyle.Render(fmt.Sprintf("[%s / %s]", e.Speaker, e.Model)))
			m.appendLine(e.Text)
		case chat.RunErrorEvent:
			if m.stage == stageLoadingModels || m.stage == stagePulling {
				m.loadErrs = append(m.loadErrs, e.Err.Error())
			} else {
				m.appendLine(errorStyle.Render("ERROR: " + e.Err.Error()))
			}
		}
	}
}

func (m *model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if m.vp.Width > 0 {
		m.vp.SetContent(strings.Join(m.lines, "\n"))
		m.vp.GotoBottom()
	}
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("AI Cross-Chat") + "\n")

	switch m.stage {
	case stageLoadingModels:
		b.WriteString(fmt.Sprintf("\n%s %s\n", m.sp.View(), m.status))
		for _, e := range m.loadErrs {
			b.WriteString(errorStyle.Render("warning: "+e) + "\n")
		}

	case stagePickInitiator, stagePickResponder:
		list := m.models[m.picking]
		b.WriteString("\n")
		if len(list) == 0 {
			b.WriteString("No models found. Type a model tag to download it.\n")
		}
		for i, name := range list {
			b.WriteString(fmt.Sprintf("%2d) %s\n", i+1, name))
		}
		b.WriteString("\n" + m.ti.View() + "\n")
		b.WriteString(statusStyle.Render(m.status) + "\n")

	case stagePulling:
		b.WriteString(fmt.Sprintf("\n%s %s\n", m.sp.View(), m.status))
		if m.pullLine != "" {
			b.WriteString(faintStyle.Render(m.pullLine) + "\n")
		}

	case stageTopic:
		b.WriteString("\nTopic:\n" + m.ti.View() + "\n")
		b.WriteString(statusStyle.Render(m.status) + "\n")

	case stageRunning, stageFinished:
		b.WriteString(m.vp.View() + "\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
		}
		left := ""
		if m.stage == stageRunning {
			left = fmt.Sprintf("  Turns left: %d", m.turnsLeft)
		}
		b.WriteString(statusStyle.Render(m.status) + faintStyle.Render(left) + "\n")
	}

	return b.String()
}
