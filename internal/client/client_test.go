package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/internal/store"
)

func newClient(t *testing.T, medium store.Medium) *Client {
	t.Helper()
	return New(context.Background(), Deps{
		Medium:    medium,
		Clock:     clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		JWTSecret: "test-secret",
	})
}

func TestScenario_register_then_verify(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, nil)

	ins := c.From("participants").Insert(models.Record{
		"user_id": "buyer-1", "event_id": "2", "name": "John Doe",
		"email": "john.doe@example.com", "phone": "0812", "status": "pending",
	}).Execute(ctx)
	require.Nil(t, ins.Error)
	id := ins.Row()["id"]

	upd := c.From("participants").Update(models.Record{"status": "verified"}).Eq("id", id).Execute(ctx)
	require.Nil(t, upd.Error)

	got := c.From("participants").Select().Eq("id", id).Single().Execute(ctx)
	require.Nil(t, got.Error)
	assert.Equal(t, "verified", got.Row()["status"])
}

func TestScenario_wishlist_remove(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, nil)

	require.Nil(t, c.From("wishlist").Insert(models.Record{"user_id": "buyer-1", "event_id": "4"}).Execute(ctx).Error)
	require.Nil(t, c.From("wishlist").Delete().Eq("user_id", "buyer-1").Eq("event_id", "4").Execute(ctx).Error)

	res := c.From("wishlist").Select().Eq("user_id", "buyer-1").Execute(ctx)
	require.Nil(t, res.Error)
	rows, ok := res.Data.([]models.Record)
	require.True(t, ok)
	assert.Empty(t, rows)
}

func TestScenario_teacher_dashboard(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, nil)

	sign := c.Auth.SignInWithPassword(ctx, "teacher@demo.com", "demo")
	require.Nil(t, sign.Error)

	session := c.Auth.GetSession(ctx).Data.Session
	require.NotNil(t, session)
	profile, err := c.Auth.EnsureProfile(ctx, session.User)
	require.Nil(t, err)
	assert.Equal(t, models.RoleTeacher, profile.Role)

	events := c.From("events").SelectString("*, participants(*)").Eq("user_id", session.User.ID).Order("date", true).Execute(ctx)
	require.Nil(t, events.Error)
	rows := events.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0]["id"])
	assert.Len(t, rows[0]["participants"], 3)
}

func TestClients_sharing_a_medium_see_each_other(t *testing.T) {
	ctx := context.Background()
	medium := store.NewMemoryMedium()
	tabA := newClient(t, medium)
	tabB := newClient(t, medium)

	require.Nil(t, tabA.From("wishlist").Insert(models.Record{"user_id": "buyer-1", "event_id": "6"}).Execute(ctx).Error)
	assert.Len(t, tabB.From("wishlist").Select().Execute(ctx).Rows(), 1)

	tabA.Auth.SignInWithPassword(ctx, "buyer", "pw")
	s := tabB.Auth.GetSession(ctx).Data.Session
	require.NotNil(t, s)
	assert.Equal(t, "buyer-1", s.User.ID)
}

func TestClients_are_isolated(t *testing.T) {
	ctx := context.Background()
	a := newClient(t, nil)
	b := newClient(t, nil)

	require.Nil(t, a.From("events").Delete().Execute(ctx).Error)
	assert.Empty(t, a.From("events").Select().Execute(ctx).Rows())
	assert.Len(t, b.From("events").Select().Execute(ctx).Rows(), 6)
}

func TestStorage_avatar_upload(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, nil)

	url, err := c.Storage.UploadAvatar(ctx, "buyer-1", "image/png", strings.NewReader("img"))
	require.Nil(t, err)
	assert.Equal(t, "/storage/v1/object/public/avatars/buyer-1/avatar.png", url)
	assert.Equal(t, url, c.Storage.From("avatars").GetPublicURL("buyer-1/avatar.png"))

	p := c.From("profiles").Select("avatar_url").Eq("id", "buyer-1").Single().Execute(ctx)
	require.Nil(t, p.Error)
	assert.Equal(t, url, p.Row()["avatar_url"])

	_, err = c.Storage.UploadAvatar(ctx, "buyer-1", "text/plain", strings.NewReader("x"))
	require.NotNil(t, err)
	assert.Equal(t, models.CodeInvalidInput, err.Code)

	_, err = c.Storage.UploadAvatar(ctx, "ghost", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
