package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"autotrader/internal/activity"
	"autotrader/internal/domain"
	"autotrader/internal/scheduler"

	tele "gopkg.in/telebot.v3"
)

type AccountReader interface {
	Snapshot() domain.AccountSnapshot
}

type StatusReader interface {
	Status() scheduler.Status
}

// Sender is the part of *tele.Bot the notifier uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

var newBot = tele.NewBot

// StartTelegramBot registers read-only commands and returns a notifier that
// pushes executed trades and halts to chatID. It returns nil when token is
// empty.
func StartTelegramBot(ctx context.Context, token string, chatID int64, account AccountReader, status StatusReader) *Notifier {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Printf("failed to create Telegram bot, notifications disabled: %v", err)
		return nil
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/status", func(c tele.Context) error {
		return c.Send(formatStatus(status.Status(), account.Snapshot()))
	})
	b.Handle("/positions", func(c tele.Context) error {
		return c.Send(formatPositions(account.Snapshot().Positions))
	})

	go b.Start()
	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	log.Println("Telegram bot started")

	if chatID == 0 {
		log.Println("TELEGRAM_CHAT_ID not set, trade notifications disabled")
		return nil
	}
	return NewNotifier(ctx, b, tele.ChatID(chatID))
}

// Notifier forwards activity entries to a chat from a background goroutine
// so a slow Telegram API never stalls a trading cycle. When the queue is
// full, messages are dropped.
type Notifier struct {
	sender Sender
	chat   tele.Recipient
	queue  chan string
}

func NewNotifier(ctx context.Context, sender Sender, chat tele.Recipient) *Notifier {
	n := &Notifier{sender: sender, chat: chat, queue: make(chan string, 64)}
	go n.run(ctx)
	return n
}

func (n *Notifier) Observe(_ context.Context, e activity.Entry) {
	var msg string
	switch {
	case e.Kind == activity.KindExecuted && e.Trade != nil:
		msg = formatTrade(*e.Trade)
	case e.Kind == activity.KindHalted:
		msg = "TRADING HALTED: " + e.Message
	default:
		return
	}
	select {
	case n.queue <- msg:
	default:
		log.Println("telegram: notification queue full, dropping message")
	}
}

func (n *Notifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			if _, err := n.sender.Send(n.chat, msg); err != nil {
				log.Printf("telegram: send notification: %v", err)
			}
		}
	}
}

func formatTrade(t domain.TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s @ $%s (%s)", strings.ToUpper(string(t.Side)), t.Amount, t.Symbol, t.Price.StringFixed(2), t.Reason)
	if t.RealizedProfit != nil {
		fmt.Fprintf(&b, "\nRealized P&L: $%s", t.RealizedProfit.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nStrategy: %s, confidence %.0f, %s", t.Strategy, t.Confidence, t.Mode)
	return b.String()
}

func formatStatus(st scheduler.Status, acct domain.AccountSnapshot) string {
	msg := fmt.Sprintf(
		"Bot: %s (%s, %s)\nBalance: $%s\nEquity: $%s\nDrawdown: %.2f%%\nOpen positions: %d\nTrades: %d, win rate %.1f%%",
		st.State, st.Mode, st.Strategy,
		acct.Balance.StringFixed(2), acct.Equity.StringFixed(2), acct.DrawdownPct,
		len(acct.Positions), acct.Stats.TotalTrades, acct.Stats.WinRate,
	)
	if st.Halted != "" {
		msg += "\nHALTED: " + st.Halted
	}
	return msg
}

func formatPositions(positions []domain.Position) string {
	if len(positions) == 0 {
		return "No open positions"
	}
	lines := make([]string, 0, len(positions))
	for _, p := range positions {
		lines = append(lines, fmt.Sprintf("%s %s %s @ $%s, now $%s (%+.2f%%)",
			p.Symbol, p.Side, p.Size, p.EntryPrice.StringFixed(2), p.CurrentPrice.StringFixed(2), p.UnrealizedPct()))
	}
	return strings.Join(lines, "\n")
}
