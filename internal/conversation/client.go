// internal/conversation/client.go
package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/httpclient"
	"venture-match-engine/internal/common/logger"
)

// Client opens conversations in the messaging service when a pair matches.
type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  logger.Logger
}

func NewClient(cfg config.ConversationConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    httpclient.NewClient(timeout),
		baseURL: cfg.BaseURL,
		logger:  log.WithFields(map[string]interface{}{"component": "conversation-client"}),
	}
}

type createRequest struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

// CreateConversation asks the messaging service for a channel between the
// two participants. The service treats matchId as an idempotency key, so
// retries after partial failures are safe.
func (c *Client) CreateConversation(ctx context.Context, matchID, userA, userB string) error {
	body, err := json.Marshal(createRequest{
		MatchID:      matchID,
		Participants: []string{userA, userB},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/conversations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("conversation service unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 409 means the conversation already exists, which satisfies the caller.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("conversation service returned status %d", resp.StatusCode)
	}

	c.logger.Debug("conversation created", map[string]interface{}{
		"matchId": matchID,
	})
	return nil
}

// NopService satisfies the swipe machine's conversation port without a
// messaging backend. Used in tests and when the service URL is unset.
type NopService struct{}

func (NopService) CreateConversation(ctx context.Context, matchID, userA, userB string) error {
	return nil
}
