package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shanev77/crosschat/src/aisdk"
)

// Pull downloads a model on the endpoint, invoking fn for every progress
// record until the stream ends. The endpoint streams NDJSON records; a
// line that fails to parse is surfaced verbatim as a status.
func (c *Client) Pull(ctx context.Context, model string, fn func(aisdk.PullProgress)) error {
	logger := c.logger.With("method", "Pull", "model", model)

	body, err := json.Marshal(aisdk.PullRequest{Name: model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pull request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var progress aisdk.PullProgress
		if err := json.Unmarshal(line, &progress); err != nil {
			progress = aisdk.PullProgress{Status: string(line)}
		}
		fn(progress)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("pull stream failed: %w", err)
	}

	c.tagCache.Invalidate()
	logger.Info("model download finished")
	return nil
}
