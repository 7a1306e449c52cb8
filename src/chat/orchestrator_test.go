package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanev77/crosschat/src/aisdk"
)

// scriptedProvider returns canned replies and records every request it
// received, with the message log snapshotted at call time.
type scriptedProvider struct {
	replies  []string
	requests [][]aisdk.Message
	failAt   int // 1-based call number to fail on; 0 never fails
	failWith error
	calls    int
}

func (p *scriptedProvider) Chat(_ context.Context, req *aisdk.ChatRequest) (*aisdk.ChatResponse, error) {
	p.calls++

	snapshot := make([]aisdk.Message, len(req.Messages))
	for i, m := range req.Messages {
		snapshot[i] = *m
	}
	p.requests = append(p.requests, snapshot)

	if p.failAt != 0 && p.calls == p.failAt {
		return nil, p.failWith
	}
	reply := p.replies[p.calls-1]
	return &aisdk.ChatResponse{
		Message: aisdk.Message{Role: aisdk.RoleAssistant, Content: reply},
	}, nil
}

func (p *scriptedProvider) ListModels(context.Context) ([]string, error) { return nil, nil }

func (p *scriptedProvider) Pull(context.Context, string, func(aisdk.PullProgress)) error {
	return nil
}

type recordedTurn struct {
	turn  int
	name  string
	model string
	text  string
}

// recordingTranscript captures everything the runner writes.
type recordingTranscript struct {
	turns   []recordedTurn
	footers int
	closed  int
}

func (r *recordingTranscript) WriteTurn(turn int, name, model, text string) error {
	r.turns = append(r.turns, recordedTurn{turn: turn, name: name, model: model, text: text})
	return nil
}

func (r *recordingTranscript) WriteFooter(time.Time) error {
	r.footers++
	return nil
}

func (r *recordingTranscript) Close() error {
	r.closed++
	return nil
}

func newTestRunner(t *testing.T, cfg RunConfig, a, b *scriptedProvider) (*Runner, *recordingTranscript, *Queue) {
	t.Helper()
	initiator := NewParticipant("Bob", "Jane", "model-a", a, "http://a")
	responder := NewParticipant("Jane", "Bob", "model-b", b, "http://b")
	rec := &recordingTranscript{}
	queue := NewQueue()
	runner := NewRunner(cfg, initiator, responder, rec, queue, nil)
	runner.sleep = func(time.Duration) {}
	return runner, rec, queue
}

func TestRunnerFullConversation(t *testing.T) {
	initiatorSide := &scriptedProvider{replies: []string{
		"I find this fascinating.",
		"Thoughtful Question: so we agree, don't we?",
	}}
	responderSide := &scriptedProvider{replies: []string{
		"So do I.",
		"That sums it up nicely",
	}}

	cfg := RunConfig{Topic: "black holes", Turns: 4, Temperature: 0.7, NumPredict: 300, HistoryWindow: 10}
	runner, rec, queue := newTestRunner(t, cfg, initiatorSide, responderSide)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, runner.State())
	assert.Equal(t, 4, result.Turns)
	assert.False(t, result.Stopped)

	// Speakers alternate, initiator first.
	require.Len(t, rec.turns, 4)
	assert.Equal(t, []string{"Bob", "Jane", "Bob", "Jane"},
		[]string{rec.turns[0].name, rec.turns[1].name, rec.turns[2].name, rec.turns[3].name})

	// Turn 1: seed prompt attributed to the peer, no cue.
	first := initiatorSide.requests[0]
	require.NotEmpty(t, first)
	assert.Equal(t, aisdk.RoleSystem, first[0].Role)
	seed := first[len(first)-1]
	assert.Equal(t, aisdk.RoleUser, seed.Role)
	assert.Contains(t, seed.Content, "From Jane: Start a friendly, curious conversation about: black holes")
	assert.NotContains(t, seed.Content, "cue:")

	// Turn 2: remaining 3, still no cue.
	turn2 := responderSide.requests[0]
	assert.Contains(t, turn2[len(turn2)-1].Content, "From Bob: I find this fascinating.")
	assert.NotContains(t, turn2[len(turn2)-1].Content, "cue:")

	// Turn 3: remaining 2, wrap-up cue.
	turn3 := initiatorSide.requests[1]
	assert.Contains(t, turn3[len(turn3)-1].Content, "[Wrap-up cue:")

	// Turn 4: remaining 1, final cue.
	turn4 := responderSide.requests[1]
	assert.Contains(t, turn4[len(turn4)-1].Content, "[Final-turn cue:")

	// Turn 3 reply sanitized: label stripped, no question marks.
	assert.Equal(t, "so we agree, don't we.", rec.turns[2].text)

	// Turn 4 reply gained the closing sentence.
	assert.Equal(t, "That sums it up nicely. Thanks for the chat. Goodbye.", rec.turns[3].text)

	assert.Equal(t, 1, rec.footers)
	assert.Equal(t, 1, rec.closed)

	var produced, finished int
	for _, event := range queue.Drain() {
		switch event.GetType() {
		case EventTurnProduced:
			produced++
		case EventRunFinished:
			finished++
		}
	}
	assert.Equal(t, 4, produced)
	assert.Equal(t, 1, finished)
}

func TestRunnerHistoryWindowBoundsRequests(t *testing.T) {
	initiatorSide := &scriptedProvider{replies: []string{"a", "b", "c"}}
	responderSide := &scriptedProvider{replies: []string{"x", "y", "z"}}

	cfg := RunConfig{Topic: "t", Turns: 6, HistoryWindow: 1, NumPredict: 10}
	runner, _, _ := newTestRunner(t, cfg, initiatorSide, responderSide)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	for _, reqs := range [][][]aisdk.Message{initiatorSide.requests, responderSide.requests} {
		for _, messages := range reqs {
			assert.LessOrEqual(t, len(messages), 3, "system + one pair + the new prompt")
			assert.Equal(t, aisdk.RoleSystem, messages[0].Role)
		}
	}
}

func TestRunnerCancellation(t *testing.T) {
	initiatorSide := &scriptedProvider{replies: []string{"one", "three", "five"}}
	responderSide := &scriptedProvider{replies: []string{"two", "four"}}

	cfg := RunConfig{Topic: "t", Turns: 5, HistoryWindow: 10, NumPredict: 10}
	runner, rec, _ := newTestRunner(t, cfg, initiatorSide, responderSide)

	// Raise the stop flag while "sleeping" after turn 2, before turn 3
	// begins.
	sleeps := 0
	runner.sleep = func(time.Duration) {
		sleeps++
		if sleeps == 2 {
			runner.Stop()
		}
	}

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, runner.State())
	assert.True(t, result.Stopped)
	assert.Equal(t, 2, result.Turns)
	assert.Len(t, rec.turns, 2)
	assert.Equal(t, 1, rec.footers, "footer still written on stop")
	assert.Equal(t, 1, rec.closed)
}

func TestRunnerFatalClientError(t *testing.T) {
	boom := errors.New("endpoint exploded")
	initiatorSide := &scriptedProvider{replies: []string{"one"}}
	responderSide := &scriptedProvider{failAt: 1, failWith: boom}

	cfg := RunConfig{Topic: "t", Turns: 4, HistoryWindow: 10, NumPredict: 10}
	runner, rec, queue := newTestRunner(t, cfg, initiatorSide, responderSide)

	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, StateFailed, runner.State())
	assert.Equal(t, 1, result.Turns)
	assert.Len(t, rec.turns, 1)
	assert.Equal(t, 0, rec.footers, "no footer on a failed run")
	assert.Equal(t, 1, rec.closed, "transcript still closed")

	var sawError bool
	for _, event := range queue.Drain() {
		if event.GetType() == EventRunError {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestRunnerNotReusable(t *testing.T) {
	initiatorSide := &scriptedProvider{replies: []string{"one"}}
	responderSide := &scriptedProvider{replies: []string{"two"}}

	cfg := RunConfig{Topic: "t", Turns: 2, HistoryWindow: 10, NumPredict: 10}
	runner, _, _ := newTestRunner(t, cfg, initiatorSide, responderSide)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	assert.Error(t, err)
}

func TestRunnerPacesTurns(t *testing.T) {
	initiatorSide := &scriptedProvider{replies: []string{"one"}}
	responderSide := &scriptedProvider{replies: []string{"two"}}

	cfg := RunConfig{Topic: "t", Turns: 2, HistoryWindow: 10, NumPredict: 10, Delay: 250 * time.Millisecond}
	runner, _, _ := newTestRunner(t, cfg, initiatorSide, responderSide)

	var waits []time.Duration
	runner.sleep = func(d time.Duration) { waits = append(waits, d) }

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, waits)
}
