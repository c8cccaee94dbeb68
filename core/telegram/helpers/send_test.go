package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/triviabot/core/telegram/sender"
)

func TestDeliverWithoutDispatcherRunsInline(t *testing.T) {
	SetDispatcher(nil)
	ran := false
	err := Deliver(context.Background(), sender.Job{Run: func(context.Context) error {
		ran = true
		return nil
	}})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDeliverFallsBackWhenClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	d.Close()
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	ran := false
	err := Deliver(context.Background(), sender.Job{Key: 7, Action: "send.text", Run: func(context.Context) error {
		ran = true
		return nil
	}})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDeliverQueues(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 2})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	done := make(chan struct{})
	err := Deliver(context.Background(), sender.Job{Key: 1, Run: func(context.Context) error {
		close(done)
		return nil
	}})
	require.NoError(t, err)
	<-done
	d.Close()
	assert.EqualValues(t, 1, d.SentCount())
}
