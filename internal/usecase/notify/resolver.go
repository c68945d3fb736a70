package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	"github.com/johnquangdev/meeting-agent/pkg/slack"
)

// Resolver translates human-readable destinations (channel names, owner
// emails) into platform addresses. The email cache lives for the process;
// the key space is bounded by the distinct emails seen, so no eviction.
type Resolver struct {
	client *slack.Client
	logger *zap.Logger

	mu          sync.RWMutex
	emailToUser map[string]string
}

// NewResolver creates a destination resolver on a Slack client
func NewResolver(client *slack.Client, logger *zap.Logger) *Resolver {
	return &Resolver{
		client:      client,
		logger:      logger,
		emailToUser: make(map[string]string),
	}
}

// ResolveChannel accepts a channel id (C..., G..., D...) or a plain name
// ("general" or "#general") and returns the channel id. Exhausting the
// directory without a match yields entities.ErrChannelNotFound; transport
// errors are returned as-is so callers can retry.
func (r *Resolver) ResolveChannel(ctx context.Context, channel string) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("empty channel: %w", entities.ErrChannelNotFound)
	}

	switch channel[0] {
	case 'C', 'G', 'D':
		return channel, nil
	}
	channel = strings.TrimPrefix(channel, "#")

	cursor := ""
	for {
		channels, next, err := r.client.ListChannels(ctx, cursor)
		if err != nil {
			return "", fmt.Errorf("listing channels: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == channel {
				return ch.ID, nil
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	return "", fmt.Errorf("channel %q: %w", channel, entities.ErrChannelNotFound)
}

// ResolveUserDM resolves an owner email to a private destination. Any failure
// at either lookup step yields entities.ErrUserNotFound; callers treat it as
// "skip this recipient", never as fatal.
func (r *Resolver) ResolveUserDM(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", entities.ErrUserNotFound
	}

	userID, err := r.lookupUser(ctx, email)
	if err != nil {
		return "", err
	}

	dm, err := r.client.OpenDirectChannel(ctx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("failed to open DM",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return "", entities.ErrUserNotFound
	}
	return dm, nil
}

func (r *Resolver) lookupUser(ctx context.Context, email string) (string, error) {
	r.mu.RLock()
	userID, ok := r.emailToUser[email]
	r.mu.RUnlock()
	if ok {
		return userID, nil
	}

	userID, err := r.client.LookupUserByEmail(ctx, email)
	if err != nil {
		if r.logger != nil && !errors.Is(err, slack.ErrNotFound) {
			r.logger.Warn("user lookup failed", zap.String("email", email), zap.Error(err))
		}
		return "", entities.ErrUserNotFound
	}

	r.mu.Lock()
	r.emailToUser[email] = userID
	r.mu.Unlock()
	return userID, nil
}
