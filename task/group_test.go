package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupCancelsOnFirstError(t *testing.T) {
	var g = NewGroup(context.Background())

	g.Queue("waits", func() error {
		<-g.Context().Done()
		return nil
	})
	g.Queue("fails", func() error { return errors.New("whoops") })

	assert.Panics(t, func() { _ = g.Wait() })
	g.GoRun()
	assert.Panics(t, func() { g.GoRun() })
	assert.Panics(t, func() { g.Queue("late", nil) })

	assert.EqualError(t, g.Wait(), "fails: whoops")
	assert.Equal(t, context.Canceled, g.Context().Err())
}

func TestGroupCancel(t *testing.T) {
	var g = NewGroup(context.Background())
	g.Queue("waits", func() error {
		<-g.Context().Done()
		return nil
	})
	g.GoRun()
	g.Cancel()

	assert.NoError(t, g.Wait())
}
