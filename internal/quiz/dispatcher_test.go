package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/triviabot/internal/session"
	"github.com/m3rciful/triviabot/internal/trivia"
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	result []trivia.Question
	err    error
}

func (f *fakeFetcher) FetchMore(_ context.Context, pool trivia.Pool) <-chan error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer close(done)
		if f.err != nil {
			done <- f.err
			return
		}
		if _, size := pool.Absorb(f.result); size == 0 {
			done <- trivia.ErrNoFreshQuestions
			return
		}
		done <- nil
	}()
	return done
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sent struct {
	chatID int64
	text   string
	poll   *Poll
}

type fakeGateway struct {
	mu   sync.Mutex
	out  []sent
	fail error
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.out = append(g.out, sent{chatID: chatID, text: text})
	return nil
}

func (g *fakeGateway) SendQuiz(_ context.Context, chatID int64, p Poll) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.out = append(g.out, sent{chatID: chatID, poll: &p})
	return nil
}

func (g *fakeGateway) Sent() []sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sent(nil), g.out...)
}

type fakeRecorder struct {
	mu    sync.Mutex
	polls []Poll
}

func (r *fakeRecorder) Record(_ context.Context, _, _ int64, p Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, p)
	return nil
}

func (r *fakeRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.polls)
}

const (
	user = int64(7)
	chat = int64(70)
)

func question(text string) trivia.Question {
	return trivia.Question{
		Question:         text,
		CorrectAnswer:    "right",
		IncorrectAnswers: []string{"wrong 1", "wrong 2", "wrong 3"},
		Category:         "General",
		Difficulty:       "easy",
	}
}

func newTestDispatcher(f *fakeFetcher) (*Dispatcher, *session.Store, *fakeGateway) {
	store := session.NewStore()
	gw := &fakeGateway{}
	return NewDispatcher(store, f, gw, Options{}), store, gw
}

func upd(text string) Update {
	return Update{ID: 1, ChatID: chat, UserID: user, FirstName: "Ada", Text: text}
}

func awaitLater(t *testing.T, out Outcome) Reply {
	t.Helper()
	require.NotNil(t, out.Later)
	select {
	case r, ok := <-out.Later:
		require.True(t, ok)
		_, open := <-out.Later
		assert.False(t, open)
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no follow-up reply")
		return Reply{}
	}
}

func TestNextWithoutSession(t *testing.T) {
	f := &fakeFetcher{}
	d, store, _ := newTestDispatcher(f)

	out := d.Dispatch(context.Background(), upd("/next"))
	require.NotNil(t, out.Now)
	assert.Equal(t, "I beg your pardon, but who are you? We haven't been introduced yet... (please /start me)", out.Now.Text)
	assert.Equal(t, chat, out.Now.ChatID)
	assert.Nil(t, out.Later)
	assert.Zero(t, store.Len())
	assert.Zero(t, f.Calls())
}

func TestStartGreetsAndIsIdempotent(t *testing.T) {
	d, store, _ := newTestDispatcher(&fakeFetcher{})

	out := d.Dispatch(context.Background(), upd("/start"))
	require.NotNil(t, out.Now)
	assert.Equal(t, "Hello Ada!\nYou can request next trivia question by sending /next or finish the session by sending /bye.", out.Now.Text)

	sess, ok := store.Get(user)
	require.True(t, ok)
	sess.Absorb([]trivia.Question{question("a"), question("b")})

	d.Dispatch(context.Background(), upd("/start"))
	again, ok := store.Get(user)
	require.True(t, ok)
	assert.Same(t, sess, again)
	assert.Equal(t, 2, again.Len())
	assert.Equal(t, 1, store.Len())
}

func TestByeRemovesSession(t *testing.T) {
	d, store, _ := newTestDispatcher(&fakeFetcher{})
	d.Dispatch(context.Background(), upd("/start"))

	out := d.Dispatch(context.Background(), upd("/bye"))
	require.NotNil(t, out.Now)
	assert.Equal(t, "Good bye Ada, see you next time!", out.Now.Text)
	assert.Zero(t, store.Len())

	out = d.Dispatch(context.Background(), upd("/next"))
	require.NotNil(t, out.Now)
	assert.Contains(t, out.Now.Text, "who are you?")
}

func TestByeWithoutSessionIsSilent(t *testing.T) {
	d, store, _ := newTestDispatcher(&fakeFetcher{})
	out := d.Dispatch(context.Background(), upd("/bye"))
	assert.Nil(t, out.Now)
	assert.Nil(t, out.Later)
	assert.Zero(t, store.Len())
}

func TestNextPopsFromPool(t *testing.T) {
	f := &fakeFetcher{}
	d, store, _ := newTestDispatcher(f)
	d.Dispatch(context.Background(), upd("/start"))
	sess, _ := store.Get(user)
	sess.Absorb([]trivia.Question{question("first"), question("second")})

	out := d.Dispatch(context.Background(), upd("/next"))
	require.NotNil(t, out.Now)
	require.NotNil(t, out.Now.Poll)
	assert.Nil(t, out.Later)
	assert.Equal(t, "second", out.Now.Poll.Question)
	assert.Equal(t, 1, sess.Len())
	assert.Equal(t, 1, sess.Processed())
	assert.Zero(t, f.Calls())
}

func TestNextEmptyPoolFetches(t *testing.T) {
	f := &fakeFetcher{result: []trivia.Question{question("q1"), question("q2"), question("q3")}}
	d, store, _ := newTestDispatcher(f)
	d.Dispatch(context.Background(), upd("/start"))

	out := d.Dispatch(context.Background(), upd("/next"))
	require.NotNil(t, out.Now)
	assert.Equal(t, "Ada, please wait till I find more questions for you...", out.Now.Text)

	later := awaitLater(t, out)
	require.NotNil(t, later.Poll)
	assert.Contains(t, []string{"q1", "q2", "q3"}, later.Poll.Question)
	assert.Equal(t, chat, later.ChatID)

	sess, _ := store.Get(user)
	assert.Equal(t, 2, sess.Len())
	assert.Equal(t, 1, f.Calls())
}

func TestNextFetchFailure(t *testing.T) {
	for name, err := range map[string]error{
		"transport":     errors.New("dial tcp: connection refused"),
		"response code": &trivia.ResponseCodeError{ResponseCode: 5},
	} {
		t.Run(name, func(t *testing.T) {
			d, store, _ := newTestDispatcher(&fakeFetcher{err: err})
			d.Dispatch(context.Background(), upd("/start"))

			later := awaitLater(t, d.Dispatch(context.Background(), upd("/next")))
			assert.Nil(t, later.Poll)
			assert.Equal(t, "Sorry, Ada, but I cannot find more question now, please try again later.", later.Text)

			sess, _ := store.Get(user)
			assert.Zero(t, sess.Len())
		})
	}
}

func TestNextNoFreshQuestions(t *testing.T) {
	f := &fakeFetcher{result: []trivia.Question{question("old")}}
	d, store, _ := newTestDispatcher(f)
	d.Dispatch(context.Background(), upd("/start"))
	sess, _ := store.Get(user)
	sess.Absorb([]trivia.Question{question("old")})
	sess.Pop()

	later := awaitLater(t, d.Dispatch(context.Background(), upd("/next")))
	assert.Nil(t, later.Poll)
	assert.Contains(t, later.Text, "please try again later")
}

func TestUnknownCommand(t *testing.T) {
	d, store, _ := newTestDispatcher(&fakeFetcher{})
	want := "Sorry, I don't understand this command: '/foo'\nYou can request next trivia question by sending /next or finish the session by sending /bye."

	out := d.Dispatch(context.Background(), upd("/foo"))
	require.NotNil(t, out.Now)
	assert.Equal(t, want, out.Now.Text)
	assert.Zero(t, store.Len())

	d.Dispatch(context.Background(), upd("/start"))
	out = d.Dispatch(context.Background(), upd("/foo"))
	assert.Equal(t, want, out.Now.Text)
	assert.Equal(t, 1, store.Len())
}

func TestCommandMatchingIsExact(t *testing.T) {
	d, store, _ := newTestDispatcher(&fakeFetcher{})
	for _, text := range []string{"/Start", "/start foo", "/START", "/start@other_bot", "/start@j25trivia_bot", "/next@j25trivia_bot"} {
		out := d.Dispatch(context.Background(), upd(text))
		require.NotNil(t, out.Now, text)
		assert.Contains(t, out.Now.Text, "I don't understand this command: '"+text+"'")
	}
	assert.Zero(t, store.Len())
}

func TestPlainTextIgnored(t *testing.T) {
	d, store, _ := newTestDispatcher(&fakeFetcher{})
	d.Dispatch(context.Background(), upd("/start"))

	for _, text := range []string{"hello", "next", " /next", ""} {
		out := d.Dispatch(context.Background(), upd(text))
		assert.Nil(t, out.Now, text)
		assert.Nil(t, out.Later, text)
	}
	assert.Equal(t, 1, store.Len())
}

func TestHandleDeliversNowAndLater(t *testing.T) {
	f := &fakeFetcher{result: []trivia.Question{question("q1"), question("q2"), question("q3")}}
	store := session.NewStore()
	gw := &fakeGateway{}
	rec := &fakeRecorder{}
	d := NewDispatcher(store, f, gw, Options{Recorder: rec})

	d.Handle(context.Background(), upd("/start"))
	d.Handle(context.Background(), upd("/next"))

	require.Eventually(t, func() bool { return len(gw.Sent()) == 3 }, 5*time.Second, 10*time.Millisecond)
	out := gw.Sent()
	assert.Contains(t, out[0].text, "Hello Ada!")
	assert.Equal(t, "Ada, please wait till I find more questions for you...", out[1].text)
	require.NotNil(t, out[2].poll)
	assert.Equal(t, chat, out[2].chatID)
	assert.Eventually(t, func() bool { return rec.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHandleSwallowsDeliveryErrors(t *testing.T) {
	store := session.NewStore()
	gw := &fakeGateway{fail: errors.New("forbidden: bot was blocked by the user")}
	rec := &fakeRecorder{}
	d := NewDispatcher(store, &fakeFetcher{}, gw, Options{Recorder: rec})

	assert.NotPanics(t, func() {
		d.Handle(context.Background(), upd("/start"))
		sess, _ := store.Get(user)
		sess.Absorb([]trivia.Question{question("q")})
		d.Handle(context.Background(), upd("/next"))
	})
	assert.Zero(t, rec.Len())

	gw.mu.Lock()
	gw.fail = nil
	gw.mu.Unlock()
	d.Handle(context.Background(), upd("/foo"))
	assert.Len(t, gw.Sent(), 1)
}

type stalledRecorder struct {
	deadline chan time.Time
}

func (r *stalledRecorder) Record(ctx context.Context, _, _ int64, _ Poll) error {
	dl, _ := ctx.Deadline()
	r.deadline <- dl
	<-ctx.Done()
	return ctx.Err()
}

func TestStalledRecorderDoesNotHoldHandler(t *testing.T) {
	store := session.NewStore()
	gw := &fakeGateway{}
	rec := &stalledRecorder{deadline: make(chan time.Time, 1)}
	d := NewDispatcher(store, &fakeFetcher{}, gw, Options{Recorder: rec, RecordTimeout: 50 * time.Millisecond})

	d.Handle(context.Background(), upd("/start"))
	sess, _ := store.Get(user)
	sess.Absorb([]trivia.Question{question("q")})

	done := make(chan struct{})
	go func() {
		d.Handle(context.Background(), upd("/next"))
		close(done)
	}()

	select {
	case dl := <-rec.deadline:
		assert.False(t, dl.IsZero(), "journal insert must run under a deadline")
	case <-time.After(time.Second):
		t.Fatal("recorder not called")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler held by stalled recorder")
	}
	require.Len(t, gw.Sent(), 2)
	assert.NotNil(t, gw.Sent()[1].poll)
}

func TestDefaultRecordTimeout(t *testing.T) {
	d := NewDispatcher(session.NewStore(), &fakeFetcher{}, &fakeGateway{}, Options{})
	assert.Equal(t, DefaultRecordTimeout, d.recordTimeout)
}
