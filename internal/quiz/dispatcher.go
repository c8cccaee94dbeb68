// Package quiz turns chat commands into replies and trivia polls.
package quiz

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/triviabot/core/logger"
	"github.com/m3rciful/triviabot/internal/session"
	"github.com/m3rciful/triviabot/internal/trivia"
)

// Update is the part of an inbound message the dispatcher needs.
type Update struct {
	ID        int
	ChatID    int64
	UserID    int64
	FirstName string
	Text      string
}

// Reply is one outbound message: a text or, when Poll is set, a quiz poll.
type Reply struct {
	ChatID int64
	Text   string
	Poll   *Poll
}

// Outcome holds the reply to send right away and, for a pending fetch, a
// channel that yields the follow-up reply once and is then closed.
type Outcome struct {
	Now   *Reply
	Later <-chan Reply
}

// Gateway delivers replies to the messaging platform.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendQuiz(ctx context.Context, chatID int64, poll Poll) error
}

// Fetcher refills a session pool asynchronously.
type Fetcher interface {
	FetchMore(ctx context.Context, pool trivia.Pool) <-chan error
}

// Sessions is the session store used by the dispatcher.
type Sessions interface {
	Get(userID int64) (*session.Session, bool)
	CreateIfAbsent(userID int64) (*session.Session, bool)
	Remove(userID int64) (*session.Session, bool)
}

// Recorder keeps a record of polls accepted for delivery.
type Recorder interface {
	Record(ctx context.Context, userID, chatID int64, poll Poll) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, int64, int64, Poll) error { return nil }

// DefaultRecordTimeout bounds a single journal insert.
const DefaultRecordTimeout = 3 * time.Second

// Options configures a Dispatcher.
type Options struct {
	Shuffle  Shuffler
	Recorder Recorder
	// RecordTimeout defaults to DefaultRecordTimeout.
	RecordTimeout time.Duration
}

// Dispatcher handles the /start, /next and /bye commands.
type Dispatcher struct {
	sessions Sessions
	fetcher  Fetcher
	gateway  Gateway
	recorder Recorder
	shuffle  Shuffler

	recordTimeout time.Duration
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(sessions Sessions, fetcher Fetcher, gateway Gateway, opts Options) *Dispatcher {
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	timeout := opts.RecordTimeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	return &Dispatcher{
		sessions: sessions,
		fetcher:  fetcher,
		gateway:  gateway,
		recorder: rec,
		shuffle:  opts.Shuffle,

		recordTimeout: timeout,
	}
}

// Dispatch applies the command in u to the session store and returns the
// replies. Commands match the whole text exactly. It never blocks on the network.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) Outcome {
	text := u.Text
	if !strings.HasPrefix(text, "/") {
		return Outcome{}
	}

	switch text {
	case cmdStart:
		if _, created := d.sessions.CreateIfAbsent(u.UserID); created {
			logger.Debug(ctx, "quiz", "session.created", slog.String("command", cmdStart))
		}
		return now(u.ChatID, greeting(u.FirstName))

	case cmdBye:
		if _, ok := d.sessions.Remove(u.UserID); !ok {
			return Outcome{}
		}
		logger.Debug(ctx, "quiz", "session.removed", slog.String("command", cmdBye))
		return now(u.ChatID, farewell(u.FirstName))

	case cmdNext:
		sess, ok := d.sessions.Get(u.UserID)
		if !ok {
			return now(u.ChatID, stranger())
		}
		if poll, ok := NextQuestion(sess, d.shuffle); ok {
			return Outcome{Now: &Reply{ChatID: u.ChatID, Poll: &poll}}
		}
		return Outcome{
			Now:   &Reply{ChatID: u.ChatID, Text: pleaseWait(u.FirstName)},
			Later: d.refill(ctx, u, sess),
		}
	}

	return now(u.ChatID, unknownCommand(text))
}

// refill fetches more questions for sess and yields the follow-up reply.
func (d *Dispatcher) refill(ctx context.Context, u Update, sess *session.Session) <-chan Reply {
	later := make(chan Reply, 1)
	ctx = context.WithoutCancel(ctx)
	fetched := d.fetcher.FetchMore(ctx, sess)

	go func() {
		defer close(later)
		err := <-fetched
		if err == nil {
			if poll, ok := NextQuestion(sess, d.shuffle); ok {
				later <- Reply{ChatID: u.ChatID, Poll: &poll}
				return
			}
			// A concurrent /next took the fetched question.
			err = trivia.ErrNoFreshQuestions
		}
		attrs := []slog.Attr{
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		}
		var rcErr *trivia.ResponseCodeError
		if errors.As(err, &rcErr) {
			attrs = append(attrs, slog.String("err_code", rcErr.Code()))
		}
		logger.Warn(ctx, "quiz", "refill.failed", attrs...)
		later <- Reply{ChatID: u.ChatID, Text: tryLater(u.FirstName)}
	}()
	return later
}

// Handle dispatches u and delivers its replies; the follow-up reply is
// delivered from a separate goroutine. Delivery errors are logged only.
func (d *Dispatcher) Handle(ctx context.Context, u Update) {
	out := d.Dispatch(ctx, u)
	if out.Now != nil {
		d.deliver(ctx, u, *out.Now)
	}
	if out.Later != nil {
		ctx := context.WithoutCancel(ctx)
		go func() {
			for r := range out.Later {
				d.deliver(ctx, u, r)
			}
		}()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, u Update, r Reply) {
	if r.Poll == nil {
		if err := d.gateway.SendText(ctx, r.ChatID, r.Text); err != nil {
			logger.Warn(ctx, "quiz", "reply.failed",
				slog.String("status", "fail"),
				slog.String("reply", "text"),
				slog.String("err", err.Error()),
			)
		}
		return
	}

	if err := d.gateway.SendQuiz(ctx, r.ChatID, *r.Poll); err != nil {
		logger.Warn(ctx, "quiz", "reply.failed",
			slog.String("status", "fail"),
			slog.String("reply", "poll"),
			slog.String("err", err.Error()),
		)
		return
	}
	rctx, cancel := context.WithTimeout(ctx, d.recordTimeout)
	defer cancel()
	if err := d.recorder.Record(rctx, u.UserID, r.ChatID, *r.Poll); err != nil {
		logger.Warn(ctx, "journal", "record.failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func now(chatID int64, text string) Outcome {
	return Outcome{Now: &Reply{ChatID: chatID, Text: text}}
}
