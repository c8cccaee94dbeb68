package router

import (
	"time"

	tg "github.com/m3rciful/triviabot/core/telegram"
	"github.com/m3rciful/triviabot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextRoutes builds the handler for text that no command route claimed.
func TextRoutes(reg *tg.Registry) []tg.Route {
	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  fallbackHandler(reg, "fallback"),
		},
	}
}

// ForeignCommandHandler sends commands addressed to another bot to the
// registry fallback. RunTelegram calls it from the poller, outside bot.Use
// middlewares.
func ForeignCommandHandler(reg *tg.Registry) tele.HandlerFunc {
	return fallbackHandler(reg, "foreign_command")
}

func fallbackHandler(reg *tg.Registry, name string) tele.HandlerFunc {
	handler := func(c tele.Context) error {
		start := time.Now()
		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, name, start, func() error {
					return fb(c)
				})
			}
		}
		logHandlerSummary(c, name, start, "ignored", nil)
		return nil
	}
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))
}
