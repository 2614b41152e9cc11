package bot

import (
	"context"

	"github.com/harybot/breakroom/internal/metrics"
	"github.com/harybot/breakroom/internal/tracking"
	"github.com/rs/zerolog"
)

// Incoming is one chat event delivered by the transport: a button
// press, a command or free text.
type Incoming struct {
	UserID      string
	DisplayName string
	FirstName   string
	Text        string
	Command     string // without the leading slash, empty for plain messages
}

// Handler turns chat events into engine calls and reply text. It is
// transport-agnostic so it can be driven directly in tests.
type Handler struct {
	engine *tracking.Engine
	logger zerolog.Logger
}

// NewHandler creates a message handler over the session engine.
func NewHandler(engine *tracking.Engine, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger.With().Str("component", "handler").Logger(),
	}
}

// Handle processes one event and returns the reply text. An empty
// reply means the event is ignored (unknown commands).
func (h *Handler) Handle(ctx context.Context, msg Incoming) string {
	if msg.Command != "" {
		return h.handleCommand(msg)
	}

	if IsReturnButton(msg.Text) {
		ack, err := h.engine.RecordReturn(ctx, msg.UserID, msg.DisplayName)
		if err != nil {
			h.logger.Error().Err(err).Str("user_id", msg.UserID).Msg("Return not recorded")
			return promptSaveFailed
		}
		return RenderAck(ack)
	}

	if action, ok := ActionFromButton(msg.Text); ok {
		ack, err := h.engine.RecordDeparture(ctx, msg.UserID, msg.DisplayName, action)
		if err != nil {
			h.logger.Error().Err(err).Str("user_id", msg.UserID).Msg("Departure not recorded")
			return promptSaveFailed
		}
		return RenderAck(ack)
	}

	// Free text never mutates state, just re-prompt with the keyboard.
	metrics.RejectedMessages.Inc()
	return promptPickButton
}

func (h *Handler) handleCommand(msg Incoming) string {
	switch msg.Command {
	case "start":
		return RenderWelcome(msg.FirstName)
	case "stats":
		return RenderDaily(h.engine.DailyReport())
	case "overtime":
		return RenderOvertime(h.engine.OvertimeReport())
	default:
		return ""
	}
}
