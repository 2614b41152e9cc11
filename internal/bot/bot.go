// Package bot adapts Telegram chat traffic onto the session engine:
// the five-button reply keyboard in, acknowledgement and report text out.
package bot

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harybot/breakroom/internal/config"
	"github.com/rs/zerolog"
)

// handleTimeout bounds one event's processing including the snapshot
// write, so a slow disk never blocks the chat indefinitely.
const handleTimeout = 10 * time.Second

// Bot runs the Telegram transport in long-poll or webhook mode.
type Bot struct {
	api      *tgbotapi.BotAPI
	handler  *Handler
	cfg      config.TelegramConfig
	logger   zerolog.Logger
	keyboard tgbotapi.ReplyKeyboardMarkup
	server   *http.Server
	listener net.Listener // optional systemd socket-activated listener
	done     chan struct{}
}

// NewBot connects to the Telegram API and prepares the keyboard.
func NewBot(cfg config.TelegramConfig, handler *Handler, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonEat),
			tgbotapi.NewKeyboardButton(ButtonSmoke),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonRestroomLong),
			tgbotapi.NewKeyboardButton(ButtonRestroomShort),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonReturn),
		),
	)
	keyboard.OneTimeKeyboard = false

	return &Bot{
		api:      api,
		handler:  handler,
		cfg:      cfg,
		logger:   logger.With().Str("component", "bot").Logger(),
		keyboard: keyboard,
		done:     make(chan struct{}),
	}, nil
}

// Username returns the authorized bot account name.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// SetListener sets a pre-created webhook listener (systemd socket activation).
func (b *Bot) SetListener(ln net.Listener) {
	b.listener = ln
}

// Start begins consuming updates in the configured mode.
func (b *Bot) Start() error {
	switch b.cfg.Mode {
	case "webhook":
		return b.startWebhook()
	default:
		return b.startPolling()
	}
}

func (b *Bot) startPolling() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	go b.consume(updates)

	b.logger.Info().Str("bot", b.Username()).Msg("Long polling started")
	return nil
}

func (b *Bot) startWebhook() error {
	// The bot token doubles as the URL path, like the original
	// deployment: unguessable and unique per bot.
	path := "/" + b.api.Token

	wh, err := tgbotapi.NewWebhook(strings.TrimRight(b.cfg.WebhookURL, "/") + path)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	mux := http.NewServeMux()
	updates := make(chan tgbotapi.Update, b.api.Buffer)
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Bad webhook payload")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		updates <- *update
	})

	b.server = &http.Server{
		Addr:    net.JoinHostPort(b.cfg.BindAddress, strconv.Itoa(b.cfg.WebhookPort)),
		Handler: mux,
	}

	go func() {
		var err error
		if b.listener != nil {
			b.logger.Debug().Msg("Using systemd socket-activated webhook listener")
			err = b.server.Serve(b.listener)
		} else {
			err = b.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			b.logger.Error().Err(err).Msg("Webhook server error")
		}
	}()
	go b.consume(updates)

	b.logger.Info().
		Str("bot", b.Username()).
		Str("addr", b.server.Addr).
		Msg("Webhook server started")
	return nil
}

// Stop stops consuming updates and shuts down the webhook server.
func (b *Bot) Stop() {
	close(b.done)
	if b.cfg.Mode == "webhook" {
		if b.server != nil {
			_ = b.server.Close()
		}
	} else {
		b.api.StopReceivingUpdates()
	}
	b.logger.Info().Msg("Bot stopped")
}

func (b *Bot) consume(updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-b.done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	if !b.chatAllowed(msg.Chat.ID) {
		b.logger.Debug().Int64("chat_id", msg.Chat.ID).Msg("Chat not allowed, ignoring")
		return
	}

	incoming := Incoming{
		UserID:      strconv.FormatInt(msg.From.ID, 10),
		DisplayName: displayName(msg.From),
		FirstName:   msg.From.FirstName,
		Text:        strings.TrimSpace(msg.Text),
	}
	if msg.IsCommand() {
		incoming.Command = msg.Command()
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	reply := b.handler.Handle(ctx, incoming)
	cancel()

	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ReplyMarkup = b.keyboard
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to send reply")
	}
}

func (b *Bot) chatAllowed(chatID int64) bool {
	if len(b.cfg.AllowedGroups) == 0 {
		return true
	}
	for _, id := range b.cfg.AllowedGroups {
		if id == chatID {
			return true
		}
	}
	return false
}

func displayName(user *tgbotapi.User) string {
	if user.LastName == "" {
		return user.FirstName
	}
	return user.FirstName + " " + user.LastName
}
