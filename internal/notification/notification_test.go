package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	kind, title, body string
	icon              any
}

func setupTestHooks(t *testing.T, err error) *[]delivery {
	t.Helper()
	var sent []delivery

	origNotify, origAlert := notify, alert
	notify = func(title, message string, icon any) error {
		sent = append(sent, delivery{"notify", title, message, icon})
		return err
	}
	alert = func(title, message string, icon any) error {
		sent = append(sent, delivery{"alert", title, message, icon})
		return err
	}
	t.Cleanup(func() { notify, alert = origNotify, origAlert })

	return &sent
}

func TestSendDeliversAndReturnsID(t *testing.T) {
	sent := setupTestHooks(t, nil)
	n := New("trycase", true, zerolog.Nop())
	require.NoError(t, n.Init(context.Background()))

	id, err := n.Send(Options{Title: "导出完成", Body: "cases.xlsx"})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	require.Len(t, *sent, 1)
	assert.Equal(t, delivery{"notify", "导出完成", "cases.xlsx", ""}, (*sent)[0])
}

func TestSendWithSoundUsesAlert(t *testing.T) {
	sent := setupTestHooks(t, nil)
	n := New("trycase", true, zerolog.Nop())

	_, err := n.Send(Options{Body: "done", Sound: true})
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	assert.Equal(t, "alert", (*sent)[0].kind)
	assert.Equal(t, "trycase", (*sent)[0].title, "empty title falls back to the app name")
}

func TestSendDenied(t *testing.T) {
	sent := setupTestHooks(t, nil)
	n := New("trycase", false, zerolog.Nop())

	assert.False(t, n.IsPermissionGranted())
	assert.Equal(t, PermissionDenied, n.RequestPermission())

	_, err := n.Send(Options{Title: "x"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, *sent)

	n.SetEnabled(true)
	assert.Equal(t, PermissionGranted, n.RequestPermission())
}

func TestSendDeliveryError(t *testing.T) {
	setupTestHooks(t, errors.New("dbus unavailable"))
	n := New("trycase", true, zerolog.Nop())

	id, err := n.Send(Options{Title: "x"})
	assert.EqualError(t, err, "dbus unavailable")
	assert.Empty(t, id)
}
