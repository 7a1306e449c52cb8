package chat

import "github.com/shanev77/crosschat/src/aisdk"

// Participant is one of the two fixed conversation roles, bound to a
// persona name, a model, and an endpoint for the whole run. Its Log is
// the participant's conversational memory: a system entry followed by
// alternating prompt/reply pairs.
type Participant struct {
	Name     string
	Model    string
	Endpoint string
	Provider aisdk.Provider

	Log []*aisdk.Message
}

// NewParticipant creates a participant whose log holds only the system
// instruction.
func NewParticipant(name, peer, model string, provider aisdk.Provider, endpoint string) *Participant {
	return &Participant{
		Name:     name,
		Model:    model,
		Endpoint: endpoint,
		Provider: provider,
		Log: []*aisdk.Message{
			{Role: aisdk.RoleSystem, Content: SystemInstruction(name, peer)},
		},
	}
}

// AppendPrompt records an incoming prompt in the participant's log.
func (p *Participant) AppendPrompt(text string) {
	p.Log = append(p.Log, &aisdk.Message{Role: aisdk.RoleUser, Content: text})
}

// AppendReply records the participant's own reply in its log.
func (p *Participant) AppendReply(text string) {
	p.Log = append(p.Log, &aisdk.Message{Role: aisdk.RoleAssistant, Content: text})
}
