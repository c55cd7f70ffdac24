// Package slackgw wraps the Slack Web API behind the pipeline's messaging
// gateway interface.
package slackgw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/techpath/content-pipeline/internal/logger"
)

// Client posts block messages through the Slack Web API.
type Client struct {
	api    *slack.Client
	logger logger.Logger
}

// NewClient creates a Client authenticated with the bot token. Extra opts
// are handed to the underlying Slack client, which lets tests redirect the
// API URL.
func NewClient(token string, log logger.Logger, opts ...slack.Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("slack bot token is required")
	}
	return &Client{
		api:    slack.New(token, opts...),
		logger: log,
	}, nil
}

// PostMessage posts blocks to channelID and returns the message timestamp as
// the message reference.
func (c *Client) PostMessage(ctx context.Context, channelID string, blocks []slack.Block) (string, error) {
	if channelID == "" {
		return "", errors.New("channel id is required")
	}
	if len(blocks) == 0 {
		return "", errors.New("at least one block is required")
	}

	start := time.Now()
	_, timestamp, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionBlocks(blocks...))
	duration := time.Since(start)
	if err != nil {
		c.logger.Error("Slack post failed",
			logger.String("channel_id", channelID),
			logger.Int("blocks", len(blocks)),
			logger.Duration("duration", duration),
			logger.Error(err))
		return "", fmt.Errorf("failed to post message: %w", err)
	}
	if timestamp == "" {
		return "", errors.New("post response missing timestamp")
	}

	c.logger.Info("Posted message",
		logger.String("channel_id", channelID),
		logger.Int("blocks", len(blocks)),
		logger.String("message_ref", timestamp),
		logger.Duration("duration", duration))
	return timestamp, nil
}
