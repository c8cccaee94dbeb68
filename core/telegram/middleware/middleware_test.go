package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/triviabot/core/logger"
	tghelpers "github.com/m3rciful/triviabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func newContext(updateID int, text string) tele.Context {
	upd := tele.Update{
		ID: updateID,
		Message: &tele.Message{
			Text:   text,
			Chat:   &tele.Chat{ID: 55, Type: tele.ChatPrivate},
			Sender: &tele.User{ID: 77, FirstName: "Ada"},
		},
	}
	return tele.NewContext(nil, upd)
}

func TestRecoverMiddlewareSwallowsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	var err error
	require.NotPanics(t, func() { err = h(newContext(1, "/next")) })
	assert.NoError(t, err)
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	c := newContext(42, "/start")
	called := false
	h := LoggerMiddleware(func(c tele.Context) error {
		called = true
		ctx, ok := tghelpers.ContextFrom(c)
		require.True(t, ok)
		assert.Equal(t, int64(55), logger.ChatIDFrom(ctx))
		assert.Equal(t, int64(77), logger.UserIDFrom(ctx))
		assert.Equal(t, 42, logger.UpdateIDFrom(ctx))
		assert.Equal(t, logger.BuildRID(42, 55, 77), logger.RIDFrom(ctx))
		return nil
	})
	require.NoError(t, h(c))
	assert.True(t, called)
}

func TestAlreadyLogged(t *testing.T) {
	assert.False(t, alreadyLogged(9001))
	assert.True(t, alreadyLogged(9001))
}
