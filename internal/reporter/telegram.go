// Package reporter delivers a short scan summary over Telegram.
package reporter

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eivindh/finnscan/internal/types"
)

// maxSummaryListings caps how many listings appear in one message.
const maxSummaryListings = 5

// TelegramReporter pushes scan summaries to a chat. Delivery is optional
// and best effort; scan runs never depend on it.
type TelegramReporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramReporter connects the bot. Returns an error when the token is
// rejected by the Telegram API.
func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	return &TelegramReporter{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// SendMessage sends one HTML-formatted message to the configured chat.
func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// SendScanSummary pushes the top-scoring listings from a finished run.
func (t *TelegramReporter) SendScanSummary(analyzed []types.Listing) error {
	return t.SendMessage(SummaryText(analyzed))
}

// SummaryText renders the summary message body: counts plus the top scores.
func SummaryText(analyzed []types.Listing) string {
	high, medium := 0, 0
	for _, l := range analyzed {
		if l.IsHigh() {
			high++
		} else if l.IsMedium() {
			medium++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Job scan complete</b>\n%d analyzed | %d high | %d medium\n",
		len(analyzed), high, medium)

	sorted := append([]types.Listing(nil), analyzed...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	shown := 0
	for _, l := range sorted {
		if shown == maxSummaryListings || !l.IsHigh() && !l.IsMedium() {
			break
		}
		fmt.Fprintf(&b, "\n<b>%d</b> %s (%s)\n<a href=\"%s\">View on FINN</a>\n",
			l.Score, l.Title, orUnknown(l.Company), l.URL)
		shown++
	}

	if shown == 0 && len(analyzed) > 0 {
		b.WriteString("\nNo strong matches this run.")
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
