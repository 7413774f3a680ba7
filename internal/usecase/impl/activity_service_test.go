package impl

import (
	"log/slog"
	"testing"
	"time"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityService_ListActivity(t *testing.T) {
	h := newHarness(t)
	activity := NewActivityService(ActivityServiceParams{
		UserRepo:     h.userRepo,
		ActivityRepo: h.activityRepo,
		Logger:       slog.New(slog.DiscardHandler),
	})

	user, device := h.pairedDevice(t, "audit@example.com", "A1", "kitchen")

	h.clock.Advance(time.Second)
	command, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)
	_, err = h.commands.Poll(h.ctx, "A1")
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	_, err = h.commands.ReportOutcome(h.ctx, command.ID, true, "")
	require.NoError(t, err)

	entries, err := activity.ListActivity(h.ctx, "Audit@Example.com ", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entity.ActionPairing, entries[0].ActionType)
	assert.Equal(t, entity.ActionDeviceControl, entries[1].ActionType)
	assert.Equal(t, entity.SourceController, entries[1].Source)
	require.NotNil(t, entries[1].UserID)
	assert.Equal(t, user.ID, *entries[1].UserID)
	assert.Equal(t, command.ID.String(), entries[1].Details["command_id"])

	page, err := activity.ListActivity(h.ctx, "audit@example.com", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, entries[1].ID, page[0].ID)

	page, err = activity.ListActivity(h.ctx, "audit@example.com", 10, -5)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	_, err = activity.ListActivity(h.ctx, "nobody@example.com", 10, 0)
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
}
