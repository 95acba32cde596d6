// Package bot adapts chat updates to the search pipeline.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/core"
)

// InboundMessage is one text message from a chat user.
type InboundMessage struct {
	ChatID   int64
	UserID   string
	Username string
	Text     string
}

// Sender delivers outbound parts to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, part core.OutboundPart) error
	Typing(ctx context.Context, chatID int64) error
}

// SearchHandler runs a free-text query for a user.
type SearchHandler interface {
	HandleSearch(ctx context.Context, userID string, raw string) []core.OutboundPart
}

// Info fills the /start and /help texts.
type Info struct {
	Marketplace string
	MaxResults  int
	MaxRequests int
	Window      time.Duration
}

// Dispatcher routes commands and searches for one message at a time.
type Dispatcher struct {
	Search SearchHandler
	Sender Sender
	Info   Info
	Logger *logging.Logger
}

// Dispatch handles msg and delivers every reply part in order. It stops at
// the first delivery failure.
func (d *Dispatcher) Dispatch(ctx context.Context, msg InboundMessage) error {
	if d == nil || d.Sender == nil || d.Search == nil {
		return fmt.Errorf("dispatcher is not configured")
	}

	text := strings.TrimSpace(msg.Text)
	if command, ok := parseCommand(text); ok {
		return d.command(ctx, msg, command)
	}

	if text != "" {
		if err := d.Sender.Typing(ctx, msg.ChatID); err != nil && d.Logger != nil {
			d.Logger.Debug("Typing indicator failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		}
	}
	if d.Logger != nil {
		d.Logger.Info("Search requested",
			zap.String("user_id", msg.UserID),
			zap.String("username", msg.Username),
			zap.String("query", text))
	}
	return d.deliver(ctx, msg.ChatID, d.Search.HandleSearch(ctx, msg.UserID, text))
}

func (d *Dispatcher) command(ctx context.Context, msg InboundMessage, command string) error {
	var reply core.OutboundPart
	switch command {
	case "start":
		if d.Logger != nil {
			d.Logger.Info("User started the bot", zap.String("user_id", msg.UserID), zap.String("username", msg.Username))
		}
		reply = core.OutboundPart{Text: startMessage(d.marketplace()), ParseMode: core.ParseModeHTML}
	case "help":
		reply = core.OutboundPart{Text: d.help(), ParseMode: core.ParseModeHTML}
	default:
		reply = core.OutboundPart{Text: unknownCommandMessage}
	}
	return d.deliver(ctx, msg.ChatID, []core.OutboundPart{reply})
}

func (d *Dispatcher) deliver(ctx context.Context, chatID int64, parts []core.OutboundPart) error {
	for i, part := range parts {
		if err := d.Sender.Send(ctx, chatID, part); err != nil {
			if d.Logger != nil {
				d.Logger.Warn("Failed to deliver message",
					zap.Int64("chat_id", chatID),
					zap.Int("part", i+1),
					zap.Int("parts", len(parts)),
					zap.Error(err))
			}
			return fmt.Errorf("deliver part %d of %d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

func (d *Dispatcher) help() string {
	info := d.Info
	if info.MaxResults <= 0 {
		info.MaxResults = 4
	}
	if info.MaxRequests <= 0 {
		info.MaxRequests = 10
	}
	return helpMessage(d.marketplace(), info.MaxResults, info.MaxRequests, humanWindow(info.Window))
}

func (d *Dispatcher) marketplace() string {
	if d.Info.Marketplace == "" {
		return core.DefaultSource
	}
	return d.Info.Marketplace
}

// parseCommand recognises "/name" and "/name@botname" with optional args.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", true
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name), true
}
