package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shanev77/crosschat/src/aisdk"
	"github.com/shanev77/crosschat/src/ollama"
)

// ModelsCmd lists the models available on an endpoint.
type ModelsCmd struct {
	Endpoint string        `default:"http://127.0.0.1:11434" help:"Endpoint address"`
	Timeout  time.Duration `default:"15s" help:"HTTP timeout"`
}

// Run executes the models command
func (c *ModelsCmd) Run(cli *CLI) error {
	client := ollama.NewClient(ollama.Config{
		BaseURL: c.Endpoint,
		Timeout: c.Timeout,
		Logger:  createCLILogger(cli.LogLevel),
	})

	models, err := client.ListModels(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list models on %s: %w", c.Endpoint, err)
	}

	if len(models) == 0 {
		fmt.Println("No models found.")
		return nil
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}

// PullCmd downloads a model to an endpoint, streaming progress lines.
type PullCmd struct {
	Model    string        `arg:"" help:"Model tag to download, e.g. llama3.2:1b"`
	Endpoint string        `default:"http://127.0.0.1:11434" help:"Endpoint address"`
	Timeout  time.Duration `default:"1h" help:"Overall download timeout"`
}

// Run executes the pull command
func (c *PullCmd) Run(cli *CLI) error {
	client := ollama.NewClient(ollama.Config{
		BaseURL: c.Endpoint,
		Logger:  createCLILogger(cli.LogLevel),
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	fmt.Printf("Downloading %s to %s\n", c.Model, c.Endpoint)
	err := client.Pull(ctx, c.Model, func(p aisdk.PullProgress) {
		fmt.Println(p)
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Println("Download finished.")
	return nil
}
