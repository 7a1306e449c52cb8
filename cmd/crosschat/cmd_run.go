package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/shanev77/crosschat/src/chat"
	"github.com/shanev77/crosschat/src/config"
	"github.com/shanev77/crosschat/src/ollama"
	"github.com/shanev77/crosschat/src/transcript"
)

// conversationFlags are the run settings shared by the batch and
// interactive commands. Both map through the same toConfig so a new
// config field cannot be wired into one command and forgotten in the
// other.
type conversationFlags struct {
	InitiatorURL string `default:"http://127.0.0.1:11434" help:"Initiator endpoint address"`
	ResponderURL string `default:"http://127.0.0.1:11434" help:"Responder endpoint address"`

	InitiatorModel string `help:"Model for the initiator (tui picks interactively when empty)"`
	ResponderModel string `help:"Model for the responder (tui picks interactively when empty)"`

	InitiatorName string `default:"Bob" help:"Initiator persona name"`
	ResponderName string `default:"Jane" help:"Responder persona name"`

	Topic string `help:"Conversation topic (a sensible default is used when empty)"`

	Turns       int     `default:"50" help:"Total number of turns"`
	Temperature float64 `default:"0.7" help:"Sampling temperature"`

	Delay   time.Duration `default:"400ms" help:"Pause between turns"`
	Timeout time.Duration `default:"180s" help:"HTTP timeout per chat call"`

	Retries      int           `default:"3" help:"Retries on timeout errors"`
	RetryBackoff time.Duration `default:"1.5s" help:"Backoff unit between retries"`

	NumPredict    int `default:"300" help:"Max tokens to generate per reply"`
	HistoryWindow int `default:"10" help:"Most-recent prompt/reply pairs kept per side (-1 keeps everything)"`

	Transcript string `help:"Transcript path or directory; a unique filename is always created"`
}

func (f *conversationFlags) toConfig() config.Config {
	cfg := config.Default()
	cfg.InitiatorURL = f.InitiatorURL
	cfg.ResponderURL = f.ResponderURL
	cfg.InitiatorModel = f.InitiatorModel
	cfg.ResponderModel = f.ResponderModel
	cfg.InitiatorName = f.InitiatorName
	cfg.ResponderName = f.ResponderName
	if f.Topic != "" {
		cfg.Topic = f.Topic
	}
	cfg.Turns = f.Turns
	cfg.Temperature = f.Temperature
	cfg.Delay = f.Delay
	cfg.Timeout = f.Timeout
	cfg.Retries = f.Retries
	cfg.RetryBackoff = f.RetryBackoff
	cfg.NumPredict = f.NumPredict
	cfg.HistoryWindow = f.HistoryWindow
	cfg.Transcript = f.Transcript
	return cfg
}

// RunCmd runs a batch conversation, printing each turn to the console.
type RunCmd struct {
	conversationFlags
}

// Run executes the run command
func (c *RunCmd) Run(cli *CLI) error {
	cfg := c.toConfig()
	if err := config.NewValidator().Validate(&cfg); err != nil {
		return err
	}

	logger := createCLILogger(cli.LogLevel)
	fs := afero.NewOsFs()

	path := transcript.Uniquify(fs, cfg.Transcript, cfg.InitiatorModel, cfg.ResponderModel, time.Now())
	writer, err := transcript.NewWriter(fs, path)
	if err != nil {
		return err
	}
	if err := writer.WriteHeader(transcript.Header{
		Started:   time.Now(),
		Initiator: transcript.Side{Name: cfg.InitiatorName, Endpoint: cfg.InitiatorURL, Model: cfg.InitiatorModel},
		Responder: transcript.Side{Name: cfg.ResponderName, Endpoint: cfg.ResponderURL, Model: cfg.ResponderModel},
		Topic:     cfg.Topic,
	}); err != nil {
		writer.Close()
		return err
	}

	initiator, responder := buildParticipants(&cfg, logger)

	fmt.Println("=== Cross-chat starting ===")
	fmt.Printf("%s: %s  model: %s\n", cfg.InitiatorName, cfg.InitiatorURL, cfg.InitiatorModel)
	fmt.Printf("%s: %s  model: %s\n", cfg.ResponderName, cfg.ResponderURL, cfg.ResponderModel)
	fmt.Printf("Topic: %s\n", cfg.Topic)
	fmt.Printf("Transcript: %s\n", path)
	fmt.Println("-------------------------------------------")

	runner := chat.NewRunner(chat.RunConfig{
		Topic:         cfg.Topic,
		Turns:         cfg.Turns,
		Temperature:   cfg.Temperature,
		NumPredict:    cfg.NumPredict,
		HistoryWindow: cfg.HistoryWindow,
		Delay:         cfg.Delay,
	}, initiator, responder, writer, consoleSink(), logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nStop requested; finishing current turn...")
		runner.Stop()
	}()

	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	if result.Stopped {
		fmt.Println("=== Cross-chat stopped by user ===")
	} else {
		fmt.Println("=== Cross-chat complete ===")
	}
	return nil
}

// buildParticipants creates one endpoint client per side and binds the
// two personas to them.
func buildParticipants(cfg *config.Config, logger *slog.Logger) (initiator, responder *chat.Participant) {
	initiatorClient := ollama.NewClient(ollama.Config{
		BaseURL:    cfg.InitiatorURL,
		Timeout:    cfg.Timeout,
		RetryCount: cfg.Retries,
		RetryDelay: cfg.RetryBackoff,
		Logger:     logger,
	})
	responderClient := ollama.NewClient(ollama.Config{
		BaseURL:    cfg.ResponderURL,
		Timeout:    cfg.Timeout,
		RetryCount: cfg.Retries,
		RetryDelay: cfg.RetryBackoff,
		Logger:     logger,
	})

	initiator = chat.NewParticipant(cfg.InitiatorName, cfg.ResponderName, cfg.InitiatorModel, initiatorClient, cfg.InitiatorURL)
	responder = chat.NewParticipant(cfg.ResponderName, cfg.InitiatorName, cfg.ResponderModel, responderClient, cfg.ResponderURL)
	return initiator, responder
}

// consoleSink prints turn blocks the way the batch front end always has.
func consoleSink() chat.Sink {
	return chat.FuncSink(func(event chat.Event) {
		switch e := event.(type) {
		case chat.TurnProducedEvent:
			fmt.Printf("\n[%s / %s]\n%s\n", e.Speaker, e.Model, e.Text)
		case chat.RunErrorEvent:
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", e.Err)
		}
	})
}
