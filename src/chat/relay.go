package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// Cues appended to the prompt on the last two turns. Generation models do
// not reliably follow them, so SanitizeReply enforces the same rules on
// the way back.
const (
	wrapUpCue = "\n\n[Wrap-up cue: two messages left total. " +
		"Do NOT ask any questions. Provide a concise summary only.]"
	finalCue = "\n\n[Final-turn cue: last message. Do NOT ask questions. " +
		"Thank them and say goodbye. No new topics.]"

	// closingSentence is appended when the final reply lacks a farewell.
	closingSentence = ". Thanks for the chat. Goodbye."
)

var (
	// Some models prepend a "Thoughtful Question:" label to their replies.
	labelPrefix = regexp.MustCompile(`(?i)^\s*thoughtful\s*question\s*:\s*`)
	questions   = regexp.MustCompile(`\?+`)
	farewell    = regexp.MustCompile(`(?i)\b(thanks|thank you|cheers|goodbye|see you)\b`)
)

// BuildPrompt composes the next prompt from the previous speaker's reply,
// attributing it and appending a wind-down cue when the conversation is
// about to end.
func BuildPrompt(fromName, lastMessage string, remaining int) string {
	cue := ""
	switch remaining {
	case 2:
		cue = wrapUpCue
	case 1:
		cue = finalCue
	}
	return fmt.Sprintf("From %s: %s%s", fromName, lastMessage, cue)
}

// SanitizeReply cleans a raw model reply and, near the end of the run,
// enforces the wind-down rules the cue only suggests: no questions in the
// last two replies, and a farewell in the last one. It is deterministic
// and never fails.
func SanitizeReply(raw string, remaining int) string {
	text := strings.TrimSpace(labelPrefix.ReplaceAllString(raw, ""))
	if remaining > 2 {
		return text
	}

	text = strings.TrimSpace(questions.ReplaceAllString(text, "."))
	if remaining == 1 && !farewell.MatchString(text) {
		text = strings.TrimSpace(strings.TrimRight(text, ". ") + closingSentence)
	}
	return text
}

// SeedPrompt is the synthetic turn-0 input handed to the initiator.
func SeedPrompt(topic string) string {
	return "Start a friendly, curious conversation about: " + topic
}

// SystemInstruction builds a participant's system entry: persona identity
// plus the conversational hygiene rules (no self-disclosure of being a
// model, bounded reply length).
func SystemInstruction(name, peer string) string {
	return fmt.Sprintf(
		"You are %s. You're chatting with %s. "+
			"Speak naturally and conversationally. Do NOT mention model names, training, providers, parameters, "+
			"or that you are an AI/model/assistant. Avoid phrases like 'as a language model'. "+
			"Reply clearly in <= 150 words and end with a single direct question if it helps the conversation flow.",
		name, peer)
}
