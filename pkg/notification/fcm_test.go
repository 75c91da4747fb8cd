package notification

import (
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mireiacv/citalert/internal/model"
)

func TestServiceMessage(t *testing.T) {
	d := NewDispatcher(nil, "https://portal.example/cita", "https://portal.example/logo.png")

	msg := d.serviceMessage("Empadronamiento", []string{"t1", "t2"})

	assert.Equal(t, []string{"t1", "t2"}, msg.Tokens)
	assert.Equal(t, "New appointments available", msg.Notification.Title)
	assert.Equal(t, "Check appointments for Empadronamiento", msg.Notification.Body)

	require.NotNil(t, msg.Webpush)
	assert.Equal(t, "high", msg.Webpush.Headers["Urgency"])
	assert.Equal(t, "https://portal.example/logo.png", msg.Webpush.Notification.Icon)
	assert.Equal(t, "https://portal.example/cita", msg.Webpush.FCMOptions.Link)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.OutcomeDelivered, classify(&messaging.SendResponse{Success: true}))

	// Errors the provider helpers don't recognize stay retryable.
	assert.Equal(t, model.OutcomeOtherError, classify(&messaging.SendResponse{
		Success: false,
		Error:   errors.New("quota exceeded"),
	}))
}
