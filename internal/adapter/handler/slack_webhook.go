package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-agent/errors"
	"github.com/johnquangdev/meeting-agent/internal/usecase/reconcile"
	"github.com/johnquangdev/meeting-agent/pkg/slack"
)

// processTimeout bounds the detached reconciliation of one interaction.
const processTimeout = 30 * time.Second

// SlackWebhook receives interactive callbacks from Slack. The endpoint
// acknowledges within Slack's deadline and reconciles asynchronously; a
// dropped event surfaces as an unchanged row, which the guarded transitions
// already tolerate.
type SlackWebhook struct {
	reconciler    reconcile.Service
	signingSecret string
	logger        *zap.Logger
}

// NewSlackWebhookHandler creates the interaction callback handler. An empty
// signing secret disables verification, for local development only.
func NewSlackWebhookHandler(reconciler reconcile.Service, signingSecret string, logger *zap.Logger) *SlackWebhook {
	return &SlackWebhook{
		reconciler:    reconciler,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// interactionPayload is the subset of Slack's block_actions payload we use
type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// Actions handles POST callbacks for button interactions
func (h *SlackWebhook) Actions(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	if h.signingSecret != "" {
		timestamp := c.Request().Header.Get("X-Slack-Request-Timestamp")
		signature := c.Request().Header.Get("X-Slack-Signature")
		if !slack.TimestampFresh(timestamp, time.Now()) ||
			!slack.VerifySignature(h.signingSecret, timestamp, body, signature) {
			return HandleError(h.logger, c, errors.ErrInvalidSignature())
		}
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(form.Get("payload")), &payload); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	if payload.Type != "block_actions" || len(payload.Actions) == 0 {
		return c.NoContent(http.StatusOK)
	}

	event := reconcile.Event{
		ActionType:   payload.Actions[0].ActionID,
		Target:       payload.Actions[0].Value,
		InvokingUser: payload.User.ID,
	}

	// Ack first; Slack retries on a slow response and retries would show up
	// as duplicate events.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		if err := h.reconciler.HandleEvent(ctx, event); err != nil {
			h.logger.Error("failed to reconcile interaction",
				zap.String("action_type", event.ActionType),
				zap.String("target", event.Target),
				zap.Error(err),
			)
		}
	}()

	return c.NoContent(http.StatusOK)
}
