package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/johnquangdev/meeting-agent/pkg/config"
)

// ErrNotFound marks lookup misses reported by the Slack API (unknown user,
// unknown channel). Callers distinguish it from transient delivery failures.
var ErrNotFound = errors.New("slack: not found")

// Client is a minimal client for the Slack Web API methods this service uses
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewClient creates a Slack client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewClient(cfg *config.SlackConfig) *Client {
	var token string
	if cfg != nil {
		token = cfg.BotToken
	}
	if token == "" {
		token = os.Getenv("SLACK_BOT_TOKEN")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("SLACK_API_URL")
		if base == "" {
			base = "https://slack.com/api"
		}
	}

	return &Client{
		token:   token,
		baseURL: base,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Channel is one entry from the channel directory
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`

	Channels []Channel `json:"channels"`
	Channel  *Channel  `json:"channel"`
	User     *struct {
		ID string `json:"id"`
	} `json:"user"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListChannels returns one page of the channel directory plus the cursor for
// the next page (empty when exhausted).
func (c *Client) ListChannels(ctx context.Context, cursor string) ([]Channel, string, error) {
	q := url.Values{}
	q.Set("limit", "200")
	q.Set("types", "public_channel,private_channel")
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	env, err := c.get(ctx, "conversations.list", q)
	if err != nil {
		return nil, "", err
	}
	return env.Channels, env.ResponseMetadata.NextCursor, nil
}

// LookupUserByEmail resolves a workspace user id for an email address.
// Returns ErrNotFound when no user matches.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	q := url.Values{}
	q.Set("email", email)

	env, err := c.get(ctx, "users.lookupByEmail", q)
	if err != nil {
		return "", err
	}
	if env.User == nil {
		return "", fmt.Errorf("lookup for %s: %w", email, ErrNotFound)
	}
	return env.User.ID, nil
}

// OpenDirectChannel opens (or returns the existing) DM conversation with a user.
func (c *Client) OpenDirectChannel(ctx context.Context, userID string) (string, error) {
	env, err := c.post(ctx, "conversations.open", map[string]interface{}{"users": userID})
	if err != nil {
		return "", err
	}
	if env.Channel == nil {
		return "", fmt.Errorf("open dm with %s: %w", userID, ErrNotFound)
	}
	return env.Channel.ID, nil
}

// PostMessage posts a message to a channel or DM and returns the message ts,
// the platform's pointer to the delivered message.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []Block) (string, error) {
	body := map[string]interface{}{
		"channel": channel,
		"text":    text,
	}
	if len(blocks) > 0 {
		body["blocks"] = blocks
	}

	env, err := c.post(ctx, "chat.postMessage", body)
	if err != nil {
		return "", err
	}
	return env.TS, nil
}

func (c *Client) get(ctx context.Context, method string, q url.Values) (*apiEnvelope, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, q.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, method)
}

func (c *Client) post(ctx context.Context, method string, body map[string]interface{}) (*apiEnvelope, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method)
}

func (c *Client) do(req *http.Request, method string) (*apiEnvelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("slack %s returned status %d", method, resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("slack %s: decode response: %w", method, err)
	}
	if !env.OK {
		switch env.Error {
		case "users_not_found", "user_not_found", "channel_not_found":
			return nil, fmt.Errorf("slack %s: %s: %w", method, env.Error, ErrNotFound)
		default:
			return nil, fmt.Errorf("slack %s: %s", method, env.Error)
		}
	}
	return &env, nil
}
