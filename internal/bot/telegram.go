package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/core"
	"github.com/shopgenie/shopgenie/internal/metrics"
)

// DefaultWorkers bounds concurrent message handling.
const DefaultWorkers = 8

// ErrNotPolling is reported by CheckHealth while the poller is stopped.
var ErrNotPolling = errors.New("telegram poller is not running")

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewAPI authenticates with the Bot API.
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

// TelegramSender sends outbound parts through the Bot API.
type TelegramSender struct {
	API API
}

// Send delivers one part with link previews disabled.
func (s *TelegramSender) Send(ctx context.Context, chatID int64, part core.OutboundPart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, part.Text)
	msg.ParseMode = part.ParseMode
	msg.DisableWebPagePreview = true
	_, err := s.API.Send(msg)
	return err
}

// Typing shows the typing indicator in chatID.
func (s *TelegramSender) Typing(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.API.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// Poller long-polls for updates and dispatches text messages.
type Poller struct {
	API         API
	Dispatcher  *Dispatcher
	PollTimeout int
	Workers     int
	Logger      *logging.Logger

	running atomic.Bool
}

// Run blocks until ctx is cancelled or the update channel closes, then waits
// for in-flight messages.
func (p *Poller) Run(ctx context.Context) error {
	if p.API == nil || p.Dispatcher == nil {
		return errors.New("poller is not configured")
	}

	config := tgbotapi.NewUpdate(0)
	config.Timeout = p.PollTimeout
	updates := p.API.GetUpdatesChan(config)

	p.running.Store(true)
	defer p.running.Store(false)

	if p.Logger != nil {
		p.Logger.Info("Telegram polling started", zap.Int("poll_timeout", p.PollTimeout), zap.Int("workers", p.workers()))
	}

	slots := make(chan struct{}, p.workers())
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			p.API.StopReceivingUpdates()
			if p.Logger != nil {
				p.Logger.Info("Telegram polling stopped")
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, ok := inbound(update)
			if !ok {
				continue
			}

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-slots }()
				p.handle(ctx, msg)
			}()
		}
	}
}

// CheckHealth reports whether polling is active.
func (p *Poller) CheckHealth(ctx context.Context) error {
	if !p.running.Load() {
		return ErrNotPolling
	}
	return nil
}

func (p *Poller) handle(ctx context.Context, msg InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordPanic("bot")
			if p.Logger != nil {
				p.Logger.Error("Message handler panicked", zap.Int64("chat_id", msg.ChatID), zap.Any("panic", rec))
			}
		}
	}()

	start := time.Now()
	if err := p.Dispatcher.Dispatch(ctx, msg); err != nil && p.Logger != nil {
		p.Logger.Warn("Message handling failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		return
	}
	if p.Logger != nil {
		p.Logger.Debug("Message handled", zap.Int64("chat_id", msg.ChatID), zap.Duration("duration", time.Since(start)))
	}
}

func (p *Poller) workers() int {
	if p.Workers <= 0 {
		return DefaultWorkers
	}
	return p.Workers
}

// inbound converts a text update. Non-message and non-text updates are skipped.
func inbound(update tgbotapi.Update) (InboundMessage, bool) {
	message := update.Message
	if message == nil || message.Chat == nil || message.Text == "" {
		return InboundMessage{}, false
	}

	msg := InboundMessage{ChatID: message.Chat.ID, Text: message.Text}
	if message.From != nil {
		msg.UserID = strconv.FormatInt(message.From.ID, 10)
		msg.Username = message.From.UserName
	} else {
		msg.UserID = strconv.FormatInt(message.Chat.ID, 10)
	}
	return msg, true
}
