// Package chat implements the turn relay core: per-participant message
// logs, the relay protocol with its wind-down cues, and the orchestrator
// that alternates two participants until the turn budget is spent.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shanev77/crosschat/src/aisdk"
)

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateDone
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TurnWriter is the transcript surface the orchestrator drives. The
// header is written by whoever opened the transcript; the orchestrator
// appends turns, writes the footer when a run ends cleanly, and always
// closes the file.
type TurnWriter interface {
	WriteTurn(turn int, name, model, text string) error
	WriteFooter(finished time.Time) error
	Close() error
}

// RunConfig are the orchestrator inputs fixed for the whole run.
type RunConfig struct {
	Topic         string
	Turns         int
	Temperature   float64
	NumPredict    int
	HistoryWindow int // prompt/reply pairs to retain; Unbounded disables trimming
	Delay         time.Duration
}

// Result summarizes a finished run.
type Result struct {
	State   State
	Turns   int // turns actually produced
	Stopped bool
}

// Runner drives one conversation between two participants. A Runner is
// single-use: terminal states are final.
type Runner struct {
	ID string

	cfg          RunConfig
	participants [2]*Participant
	transcript   TurnWriter
	sink         Sink
	logger       *slog.Logger

	mu    sync.Mutex
	state State

	stop atomic.Bool

	// sleep paces the turn loop; swapped out by tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewRunner creates an orchestrator for one run. The initiator speaks
// first.
func NewRunner(cfg RunConfig, initiator, responder *Participant, transcript TurnWriter, sink Sink, logger *slog.Logger) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Runner{
		ID:           id,
		cfg:          cfg,
		participants: [2]*Participant{initiator, responder},
		transcript:   transcript,
		sink:         sink,
		logger:       logger.With("component", "runner", "run_id", id),
		state:        StateIdle,
		sleep:        time.Sleep,
		now:          time.Now,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Stop requests a cooperative stop. The flag is observed at the next turn
// boundary; an in-flight endpoint call is allowed to finish first.
func (r *Runner) Stop() {
	r.stop.Store(true)
}

func (r *Runner) base(typ EventType) BaseEvent {
	return BaseEvent{Type: typ, Timestamp: r.now(), RunID: r.ID}
}

// Run executes the turn loop until the turn budget is spent, a stop is
// requested, or the endpoint client fails fatally. It returns an error
// only for the fatal case; a stopped run is a normal completion.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return Result{State: r.state}, fmt.Errorf("runner already used (state %s)", r.state)
	}
	r.state = StateRunning
	r.mu.Unlock()

	r.logger.Info("conversation starting",
		"turns", r.cfg.Turns,
		"initiator", r.participants[0].Name, "initiator_model", r.participants[0].Model,
		"responder", r.participants[1].Name, "responder_model", r.participants[1].Model)

	lastMessage := SeedPrompt(r.cfg.Topic)
	completed := 0
	stopped := false

	for turn := 1; turn <= r.cfg.Turns; turn++ {
		remaining := r.cfg.Turns - turn + 1
		r.sink.Send(TurnsRemainingEvent{BaseEvent: r.base(EventTurnsRemaining), Remaining: remaining})

		if r.stop.Load() {
			r.setState(StateStopping)
			r.logger.Info("stop requested, winding down", "turn", turn)
			stopped = true
			break
		}

		speaker := r.participants[(turn-1)%2]
		peer := r.participants[turn%2]

		speaker.AppendPrompt(BuildPrompt(peer.Name, lastMessage, remaining))
		speaker.Log = Trim(speaker.Log, r.cfg.HistoryWindow)

		resp, err := speaker.Provider.Chat(ctx, &aisdk.ChatRequest{
			Model:    speaker.Model,
			Messages: speaker.Log,
			Stream:   false,
			Options: aisdk.Options{
				Temperature: r.cfg.Temperature,
				NumPredict:  r.cfg.NumPredict,
			},
		})
		if err != nil {
			return r.fail(turn, speaker, err)
		}

		reply := SanitizeReply(resp.Message.Content, remaining)
		speaker.AppendReply(reply)

		if err := r.transcript.WriteTurn(turn, speaker.Name, speaker.Model, reply); err != nil {
			return r.fail(turn, speaker, err)
		}

		r.sink.Send(TurnProducedEvent{
			BaseEvent: r.base(EventTurnProduced),
			Turn:      turn,
			Speaker:   speaker.Name,
			Model:     speaker.Model,
			Text:      reply,
		})

		completed = turn
		lastMessage = reply
		r.sleep(r.cfg.Delay)
	}

	if err := r.transcript.WriteFooter(r.now()); err != nil {
		r.logger.Error("failed to finalize transcript", "error", err)
	}
	if err := r.transcript.Close(); err != nil {
		r.logger.Error("failed to close transcript", "error", err)
	}

	r.setState(StateDone)
	result := Result{State: StateDone, Turns: completed, Stopped: stopped}
	r.sink.Send(RunFinishedEvent{
		BaseEvent: r.base(EventRunFinished),
		State:     StateDone,
		Turns:     completed,
		Stopped:   stopped,
	})
	r.logger.Info("conversation finished", "turns", completed, "stopped", stopped)
	return result, nil
}

// fail records a fatal run error: the transcript is closed as-is, without
// a footer, and the error surfaces to the caller and the sink.
func (r *Runner) fail(turn int, speaker *Participant, err error) (Result, error) {
	r.setState(StateFailed)
	runErr := fmt.Errorf("turn %d (%s): %w", turn, speaker.Name, err)
	r.logger.Error("conversation failed", "turn", turn, "speaker", speaker.Name, "error", err)

	if cerr := r.transcript.Close(); cerr != nil {
		r.logger.Error("failed to close transcript", "error", cerr)
	}

	r.sink.Send(RunErrorEvent{BaseEvent: r.base(EventRunError), Err: runErr})
	return Result{State: StateFailed, Turns: turn - 1}, runErr
}
