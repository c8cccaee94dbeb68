// Package app wires the trivia bot: configuration, infrastructure, the quiz
// dispatcher and its Telegram routes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m3rciful/triviabot/core/bootstrap"
	"github.com/m3rciful/triviabot/core/logger"
	coretelegram "github.com/m3rciful/triviabot/core/telegram"
	"github.com/m3rciful/triviabot/core/telegram/commands"
	tghelpers "github.com/m3rciful/triviabot/core/telegram/helpers"
	"github.com/m3rciful/triviabot/core/telegram/router"
	"github.com/m3rciful/triviabot/internal/journal"
	"github.com/m3rciful/triviabot/internal/quiz"
	"github.com/m3rciful/triviabot/internal/session"
	"github.com/m3rciful/triviabot/internal/trivia"

	tele "gopkg.in/telebot.v4"
)

// App holds the long-lived components of a running bot.
type App struct {
	cfg        *Config
	infra      *bootstrap.Result
	sessions   *session.Store
	gateway    *Gateway
	dispatcher *quiz.Dispatcher
	registry   *coretelegram.Registry
}

// Bootstrap initializes logging and the optional database, then builds the app.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

// New builds the app on top of already initialized infrastructure.
func New(cfg *Config, infra *bootstrap.Result) (*App, error) {
	client, err := trivia.NewClient(trivia.Options{
		BaseURL:    cfg.Trivia.BaseURL,
		Amount:     cfg.Trivia.Amount,
		Timeout:    cfg.Trivia.Timeout(),
		HTTPClient: &http.Client{},
	})
	if err != nil {
		return nil, err
	}

	opts := quiz.Options{}
	if infra != nil && infra.DB != nil {
		opts.Recorder = journal.NewRecorder(infra.DB)
	}

	a := &App{
		cfg:      cfg,
		infra:    infra,
		sessions: session.NewStore(),
		gateway:  &Gateway{},
		registry: coretelegram.NewRegistry(),
	}
	a.dispatcher = quiz.NewDispatcher(a.sessions, client, a.gateway, opts)
	a.registerCommands()

	logger.Info(context.Background(), "app", "app.wired",
		slog.String("endpoint", client.Endpoint()),
		slog.Bool("journal", opts.Recorder != nil),
	)
	return a, nil
}

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.onText,
		Description: "Start a trivia session",
	})
	a.registry.RegisterCommand("/next", commands.Command{
		Handler:     a.onText,
		Description: "Get the next trivia question",
	})
	a.registry.RegisterCommand("/bye", commands.Command{
		Handler:     a.onText,
		Description: "Finish the session",
	})
	a.registry.SetTextFallback(a.onText)
}

// onText hands every inbound text message to the quiz dispatcher.
func (a *App) onText(c tele.Context) error {
	msg, user, chat := c.Message(), c.Sender(), c.Chat()
	if msg == nil || user == nil || chat == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	a.dispatcher.Handle(ctx, quiz.Update{
		ID:        c.Update().ID,
		ChatID:    chat.ID,
		UserID:    user.ID,
		FirstName: user.FirstName,
		Text:      msg.Text,
	})
	return nil
}

// TelegramRunOptions describes how the Telegram runtime should run this app.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.TextRoutes(a.registry)...)

	return coretelegram.RunOptions{
		Config:            &a.cfg.Config,
		Registry:          a.registry,
		DispatcherOptions: coretelegram.DispatcherOptionsFromConfig(a.cfg.Sender),
		Middlewares:       coretelegram.DefaultMiddlewares(),
		Routes:            routes,
		ForeignCommands:   router.ForeignCommandHandler(a.registry),
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			if rt.Bot == nil {
				return fmt.Errorf("app: runtime without bot")
			}
			if me := rt.Bot.Me; me != nil && !strings.EqualFold(me.Username, a.cfg.Telegram.Name) {
				logger.Warn(ctx, "app", "bot_name.mismatch",
					slog.String("username", me.Username),
					slog.String("cause", "BOT_NAME differs from the bot account"),
				)
			}
			a.gateway.Bind(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			logger.Info(ctx, "app", "sessions.dropped", slog.Int("sessions", a.sessions.Len()))
			return a.infra.Close()
		},
	}, nil
}
