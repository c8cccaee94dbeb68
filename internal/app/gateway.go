package app

import (
	"context"
	"errors"
	"sync/atomic"

	tghelpers "github.com/m3rciful/triviabot/core/telegram/helpers"
	"github.com/m3rciful/triviabot/core/telegram/sender"
	"github.com/m3rciful/triviabot/internal/quiz"

	tele "gopkg.in/telebot.v4"
)

// Telegram limits for quiz polls.
const (
	maxPollQuestion = 300
	maxPollOption   = 100
)

var errGatewayUnbound = errors.New("gateway: bot not started")

// BotSender is the part of tele.Bot the gateway sends through.
type BotSender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Gateway delivers quiz replies to Telegram through the sender dispatcher.
type Gateway struct {
	bot atomic.Pointer[BotSender]
}

// Bind attaches the running bot.
func (g *Gateway) Bind(bot BotSender) {
	g.bot.Store(&bot)
}

// SendText queues a plain text message for chatID.
func (g *Gateway) SendText(ctx context.Context, chatID int64, text string) error {
	bot, err := g.sender()
	if err != nil {
		return err
	}
	return tghelpers.Deliver(ctx, sender.Job{
		Key:      chatID,
		Action:   "send.text",
		Endpoint: "sendMessage",
		Run: func(context.Context) error {
			_, err := bot.Send(tele.ChatID(chatID), text)
			return err
		},
	})
}

// SendQuiz queues a quiz poll for chatID.
func (g *Gateway) SendQuiz(ctx context.Context, chatID int64, poll quiz.Poll) error {
	bot, err := g.sender()
	if err != nil {
		return err
	}
	p := telePoll(poll)
	return tghelpers.Deliver(ctx, sender.Job{
		Key:      chatID,
		Action:   "send.poll",
		Endpoint: "sendPoll",
		Run: func(context.Context) error {
			_, err := bot.Send(tele.ChatID(chatID), p)
			return err
		},
	})
}

func (g *Gateway) sender() (BotSender, error) {
	p := g.bot.Load()
	if p == nil || *p == nil {
		return nil, errGatewayUnbound
	}
	return *p, nil
}

func telePoll(p quiz.Poll) *tele.Poll {
	out := &tele.Poll{
		Type:          tele.PollQuiz,
		Question:      clip(p.Question, maxPollQuestion),
		CorrectOption: p.CorrectOption,
	}
	for _, o := range p.Options {
		out.Options = append(out.Options, tele.PollOption{Text: clip(o, maxPollOption)})
	}
	return out
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
