package telegram

import (
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/triviabot/core/logger"
	tghelpers "github.com/m3rciful/triviabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// commandRx matches the command syntax telebot applies in ProcessUpdate.
var commandRx = regexp.MustCompile(`^(/\w+)(@(\w+))?(\s|$)(.+)?`)

// ForeignCommands catches "/cmd@name" messages addressed to another bot.
// Telebot returns from ProcessUpdate on those before any route or OnText
// handler runs, so they are taken off the update stream by a poller filter.
type ForeignCommands struct {
	bot     atomic.Pointer[tele.Bot]
	handler tele.HandlerFunc
}

// NewForeignCommands returns a filter that passes foreign commands to h.
func NewForeignCommands(h tele.HandlerFunc) *ForeignCommands {
	return &ForeignCommands{handler: h}
}

// Bind sets the bot whose username decides which commands are foreign.
func (f *ForeignCommands) Bind(b *tele.Bot) {
	f.bot.Store(b)
}

// Wrap puts the filter in front of p.
func (f *ForeignCommands) Wrap(p tele.Poller) tele.Poller {
	return tele.NewMiddlewarePoller(p, f.Filter)
}

// Filter reports whether u should continue to ProcessUpdate. Foreign
// commands are handled in place and filtered out.
func (f *ForeignCommands) Filter(u *tele.Update) bool {
	if f == nil || f.handler == nil || u == nil || u.Message == nil {
		return true
	}
	b := f.bot.Load()
	if b == nil || !AddressedElsewhere(b.Me, u.Message.Text) {
		return true
	}

	c := b.NewContext(*u)
	if err := f.handler(c); err != nil {
		logger.Error(tghelpers.BuildContext(c), "tg", "foreign_command.failed",
			slog.String("err", err.Error()),
		)
	}
	return false
}

// AddressedElsewhere reports whether text is a command whose @name is not me.
func AddressedElsewhere(me *tele.User, text string) bool {
	m := commandRx.FindStringSubmatch(text)
	if m == nil || m[3] == "" {
		return false
	}
	return me == nil || !strings.EqualFold(me.Username, m[3])
}
