package alert

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/config"
	"github.com/oddsight/oddsight/internal/models"
)

// messageSender is the part of the Telegram bot API the notifier uses.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Notifier pushes bettable decisions to a Telegram chat. A notifier built
// without a bot token is a no-op; callers do not need to special-case it.
type Notifier struct {
	bot    messageSender
	chatID int64
	logger *logrus.Logger
}

// NewNotifier creates a Telegram notifier from the configuration. An empty
// token or chat ID disables sending.
func NewNotifier(cfg config.TelegramConfig, logger *logrus.Logger) (*Notifier, error) {
	n := &Notifier{logger: logger}
	if cfg.BotToken == "" || cfg.ChatID == "" {
		logger.Info("Telegram notifications disabled: no bot token or chat ID configured")
		return n, nil
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat ID %q: %w", cfg.ChatID, err)
	}

	telegramBot, err := bot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	n.bot = telegramBot
	n.chatID = chatID
	return n, nil
}

// Enabled reports whether the notifier will actually send messages.
func (n *Notifier) Enabled() bool {
	return n.bot != nil
}

// NotifyDecision sends a formatted alert for one decision.
func (n *Notifier) NotifyDecision(ctx context.Context, d *models.Decision) error {
	if n.bot == nil {
		return nil
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      FormatDecision(d),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram alert for %s: %w", d.Symbol, err)
	}

	n.logger.WithFields(logrus.Fields{
		"symbol": d.Symbol,
		"signal": d.Signal,
		"band":   d.Band.String(),
	}).Info("Sent decision alert")
	return nil
}

// FormatDecision renders the Telegram alert body for a decision.
func FormatDecision(d *models.Decision) string {
	var b strings.Builder

	emoji := "🔴"
	if d.Band.Bullish() {
		emoji = "🟢"
	} else if d.Band == models.BandHold {
		emoji = "⚪"
	}

	fmt.Fprintf(&b, "%s *%s* %s (%s)\n\n", emoji, d.Symbol, d.Signal, d.Band.String())
	fmt.Fprintf(&b, "Win probability: %.1f%%\n", d.ProbYes*100)
	fmt.Fprintf(&b, "Confidence: %.0f/100\n", d.Confidence)
	fmt.Fprintf(&b, "Edge: %+.1f%% | EV: %+.1f%%\n", d.Edge*100, d.ExpectedValue*100)
	fmt.Fprintf(&b, "Price: %.4f → %.4f\n", d.CurrentPrice, d.PredictedPrice)
	if d.DistanceToStrike != nil {
		fmt.Fprintf(&b, "Distance to strike: %+.2f%%\n", *d.DistanceToStrike)
	}

	if len(d.Reasons) > 0 {
		b.WriteString("\n")
		for _, reason := range d.Reasons {
			fmt.Fprintf(&b, "• %s\n", reason)
		}
	}

	return b.String()
}
