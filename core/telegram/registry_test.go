package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/triviabot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistrySkipsInvalidAndDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("next", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/bye", commands.Command{Description: "x"})
	reg.RegisterCommand("/bye", commands.Command{Handler: noop})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "first"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "second"})

	require.Len(t, reg.Commands(), 1)
	assert.Equal(t, "first", reg.Commands()["/start"].Description)
}

func TestRegistryListCommandsSorted(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "start"})
	reg.RegisterCommand("/bye", commands.Command{Handler: noop, Description: "bye"})
	reg.RegisterCommand("/next", commands.Command{Handler: noop, Description: "next"})

	list := reg.ListCommands()
	require.Len(t, list, 3)
	assert.Equal(t, "bye", list[0].Text)
	assert.Equal(t, "next", list[1].Text)
	assert.Equal(t, "start", list[2].Text)
}

type fakeSetter struct {
	got []any
	err error
}

func (f *fakeSetter) SetCommands(opts ...any) error {
	f.got = opts
	return f.err
}

func TestSetupCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/next", commands.Command{Handler: noop, Description: "next question"})

	setter := &fakeSetter{}
	SetupCommands(setter, reg)
	require.Len(t, setter.got, 1)
	assert.Equal(t, []tele.Command{{Text: "next", Description: "next question"}}, setter.got[0])

	failing := &fakeSetter{err: errors.New("forbidden")}
	assert.NotPanics(t, func() { SetupCommands(failing, reg) })
}
