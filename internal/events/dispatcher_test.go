package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	smtpDown := errors.New("smtp down")

	d.Subscribe(EventComplaintSubmitted, func(context.Context, Event) error {
		calls = append(calls, "first")
		return smtpDown
	})
	d.Subscribe(EventComplaintSubmitted, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventComplaintAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventComplaintSubmitted})
	require.Error(t, err)
	assert.ErrorIs(t, err, smtpDown)
	assert.Contains(t, err.Error(), "complaint_submitted")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishWithoutHandlers(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventResponseFiled}))
}
