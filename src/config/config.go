// Package config holds the immutable per-run conversation configuration
// and validates it before a run starts.
package config

import (
	"fmt"
	"time"
)

// Config is the full set of inputs for one conversation run. It is
// created once from confirmed user input and never mutated afterwards.
type Config struct {
	InitiatorURL string `validate:"required,http_url"`
	ResponderURL string `validate:"required,http_url"`

	InitiatorModel string `validate:"required"`
	ResponderModel string `validate:"required"`

	InitiatorName string `validate:"required"`
	ResponderName string `validate:"required"`

	Topic string `validate:"required"`

	Turns       int     `validate:"min=1"`
	Temperature float64 `validate:"gte=0,lte=2"`

	Delay   time.Duration `validate:"gte=0"`
	Timeout time.Duration `validate:"gt=0"`

	Retries      int           `validate:"gte=0"`
	RetryBackoff time.Duration `validate:"gte=0"`

	NumPredict    int `validate:"gt=0"`
	HistoryWindow int `validate:"history_window"`

	// Transcript is a file path or directory; empty means an
	// auto-generated filename in the working directory.
	Transcript string
}

// DefaultTopic seeds the conversation when the user provides none.
const DefaultTopic = "Discuss whether our universe could reside inside a black hole—pros, cons, and implications."

// Default returns a config carrying the standard run parameters. Endpoint
// addresses and models must still be filled in by the caller.
func Default() Config {
	return Config{
		InitiatorName: "Bob",
		ResponderName: "Jane",
		Topic:         DefaultTopic,
		Turns:         50,
		Temperature:   0.7,
		Delay:         400 * time.Millisecond,
		Timeout:       180 * time.Second,
		Retries:       3,
		RetryBackoff:  1500 * time.Millisecond,
		NumPredict:    300,
		HistoryWindow: 10,
	}
}

// ValidationError describes a single rejected configuration field.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
