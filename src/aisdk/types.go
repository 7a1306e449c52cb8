// Package aisdk defines the wire contract shared by the chat endpoint
// client and the conversation core.
package aisdk

import (
	"context"
	"fmt"
)

// Message roles understood by the chat endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries per-request sampling parameters.
type Options struct {
	Temperature float64 `json:"temperature"`
	// NumPredict caps the number of tokens generated for the reply.
	NumPredict int `json:"num_predict"`
}

// ChatRequest represents a request to the chat endpoint. Stream is always
// false: the relay consumes whole replies, one per turn.
type ChatRequest struct {
	Model    string     `json:"model"`
	Messages []*Message `json:"messages"`
	Stream   bool       `json:"stream"`
	Options  Options    `json:"options"`
}

// ChatResponse represents a single non-streaming completion.
type ChatResponse struct {
	Message Message `json:"message"`
	// DoneReason is "length" when generation stopped at the NumPredict cap.
	DoneReason string `json:"done_reason,omitempty"`
}

// Truncated reports whether the reply was cut off at the generation cap.
func (r *ChatResponse) Truncated() bool {
	return r.DoneReason == "length"
}

// ModelTag is one entry from the model listing endpoint.
type ModelTag struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// ID returns the usable identifier for the tag. Some endpoint versions
// populate only one of the two fields.
func (t ModelTag) ID() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Model
}

// TagsResponse represents the response from the model listing endpoint.
type TagsResponse struct {
	Models []ModelTag `json:"models"`
}

// PullRequest asks the endpoint to download a model.
type PullRequest struct {
	Name string `json:"name"`
}

// PullProgress is one status record from the streamed model download.
// Completed/Total are byte counts and may be absent.
type PullProgress struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// Percent returns the download percentage, or -1 when the record carries
// no byte counts.
func (p PullProgress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return int(float64(p.Completed) / float64(p.Total) * 100)
}

// String renders the record as a one-line status, with a percentage when
// it carries byte counts.
func (p PullProgress) String() string {
	if pct := p.Percent(); pct >= 0 {
		return fmt.Sprintf("%s %d%% (%d/%d)", p.Status, pct, p.Completed, p.Total)
	}
	return p.Status
}

// Provider is the endpoint surface the conversation core depends on.
type Provider interface {
	// Chat requests a single non-streaming completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ListModels returns the endpoint's model identifiers in sorted order.
	ListModels(ctx context.Context) ([]string, error)

	// Pull downloads a model, invoking fn for every progress record until
	// the stream ends.
	Pull(ctx context.Context, model string, fn func(PullProgress)) error
}
