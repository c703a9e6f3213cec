package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/internal/query"
	"github.com/evently-demo/backend/internal/store"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	sim   *Simulator
	env   *engine.Env
	clock *clock.Fake
}

func newHarness(t *testing.T, opts Options) harness {
	t.Helper()
	clk := clock.NewFake(start)
	env := engine.NewEnv(store.NewAdapter(store.NewMemoryMedium(), "demo_", nil), clk)
	if opts.Tokens == nil {
		opts.Tokens = NewTokenIssuer("test-secret", clk)
	}
	return harness{sim: NewSimulator(env, opts), env: env, clock: clk}
}

type recorded struct {
	tag     string
	event   Event
	session *models.Session
}

func TestSignIn_teacher_demo_account(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	res := h.sim.SignInWithPassword(ctx, "teacher@demo.com", "anything")
	require.Nil(t, res.Error)
	require.NotNil(t, res.Data.Session)
	assert.Equal(t, "teacher-1", res.Data.User.ID)
	assert.Equal(t, start.Add(7*24*time.Hour).Unix(), res.Data.Session.ExpiresAt)

	got := h.sim.GetSession(ctx)
	require.NotNil(t, got.Data.Session)
	assert.Equal(t, "teacher-1", got.Data.Session.User.ID)

	profile := query.New(h.env, "profiles").Eq("id", got.Data.Session.User.ID).Single().Execute(ctx)
	require.Nil(t, profile.Error)
	assert.Equal(t, "teacher", profile.Row()["role"])
}

func TestSignIn_alias_and_stored_profile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	res := h.sim.SignInWithPassword(ctx, "buyer", "x")
	require.Nil(t, res.Error)
	assert.Equal(t, "buyer-1", res.Data.User.ID)

	res = h.sim.SignInWithPassword(ctx, "siti.nurhaliza@example.com", "x")
	require.Nil(t, res.Error)
	assert.Equal(t, "teacher-2", res.Data.User.ID)
	assert.Equal(t, "teacher", res.Data.User.UserMetadata.Role)
}

func TestSignIn_rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	var calls int
	h.sim.OnAuthStateChange(func(Event, *models.Session) { calls++ })

	res := h.sim.SignInWithPassword(ctx, "nobody@example.com", "pw")
	require.NotNil(t, res.Error)
	assert.ErrorIs(t, res.Error, models.ErrInvalidCredentials)
	assert.Nil(t, res.Data.Session)

	res = h.sim.SignInWithPassword(ctx, "teacher@demo.com", "")
	assert.ErrorIs(t, res.Error, models.ErrInvalidCredentials)

	assert.Zero(t, calls)
	assert.Nil(t, h.sim.GetSession(ctx).Data.Session)
}

func TestSignUp_creates_profile_and_session(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	res := h.sim.SignUp(ctx, "new.person@example.com", "pw", models.UserMetadata{})
	require.Nil(t, res.Error)
	user := res.Data.User
	require.NotNil(t, user)
	assert.True(t, strings.HasPrefix(user.ID, "user-"), user.ID)
	assert.Equal(t, "new.person", user.UserMetadata.FullName)
	assert.Equal(t, "buyer", user.UserMetadata.Role)

	profile := query.New(h.env, "profiles").Eq("id", user.ID).Single().Execute(ctx)
	require.Nil(t, profile.Error)
	assert.Equal(t, "new.person@example.com", profile.Row()["email"])

	// the new account can sign in again by email
	h.sim.SignOut(ctx)
	again := h.sim.SignInWithPassword(ctx, "new.person@example.com", "other")
	require.Nil(t, again.Error)
	assert.Equal(t, user.ID, again.Data.User.ID)
}

func TestSignUp_teacher_metadata(t *testing.T) {
	h := newHarness(t, Options{})

	res := h.sim.SignUp(context.Background(), "t@example.com", "pw", models.UserMetadata{FullName: "Tia", Role: "teacher"})
	require.Nil(t, res.Error)
	assert.Equal(t, "Tia", res.Data.User.UserMetadata.FullName)
	assert.Equal(t, "teacher", res.Data.User.UserMetadata.Role)
}

func TestSignUp_same_instant_gets_distinct_identities(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	alice := h.sim.SignUp(ctx, "alice@x.com", "pw", models.UserMetadata{Role: "teacher"})
	require.Nil(t, alice.Error)
	bob := h.sim.SignUp(ctx, "bob@x.com", "pw", models.UserMetadata{Role: "buyer"})
	require.Nil(t, bob.Error)
	require.NotEqual(t, alice.Data.User.ID, bob.Data.User.ID)

	profile, perr := h.sim.EnsureProfile(ctx, *bob.Data.User)
	require.Nil(t, perr)
	assert.Equal(t, "bob@x.com", profile.Email)
	assert.Equal(t, models.RoleBuyer, profile.Role)

	rows := query.New(h.env, "profiles").Eq("email", "bob@x.com").Execute(ctx).Rows()
	assert.Len(t, rows, 1)
}

func TestSignUp_profile_failure_starts_no_session(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.sim.newUserID = func() string { return "teacher-1" }

	var calls int
	h.sim.OnAuthStateChange(func(Event, *models.Session) { calls++ })
	res := h.sim.SignUp(ctx, "dup@x.com", "pw", models.UserMetadata{})
	require.NotNil(t, res.Error)
	assert.Equal(t, models.CodeDuplicate, res.Error.Code)
	assert.Zero(t, calls)
	assert.Nil(t, h.sim.GetSession(ctx).Data.Session)

	profile := query.New(h.env, "profiles").Eq("id", "teacher-1").Single().Execute(ctx)
	require.Nil(t, profile.Error)
	assert.Equal(t, "teacher", profile.Row()["role"])
}

func TestListeners_order_and_unsubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	var got []recorded
	subA := h.sim.OnAuthStateChange(func(e Event, s *models.Session) { got = append(got, recorded{"A", e, s}) })
	h.sim.OnAuthStateChange(func(e Event, s *models.Session) { got = append(got, recorded{"B", e, s}) })

	h.sim.SignInWithPassword(ctx, "buyer@demo.com", "pw")
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].tag)
	assert.Equal(t, "B", got[1].tag)
	assert.Equal(t, EventSignedIn, got[0].event)
	require.NotNil(t, got[0].session)
	assert.Equal(t, "buyer-1", got[0].session.User.ID)

	subA.Unsubscribe()
	subA.Unsubscribe()
	assert.Equal(t, 1, h.sim.ListenerCount())

	h.sim.SignOut(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, "B", got[2].tag)
	assert.Equal(t, EventSignedOut, got[2].event)
	assert.Nil(t, got[2].session)
	assert.Nil(t, h.sim.GetSession(ctx).Data.Session)
}

func TestListeners_may_unsubscribe_during_delivery(t *testing.T) {
	h := newHarness(t, Options{})

	var calls int
	var sub *Subscription
	sub = h.sim.OnAuthStateChange(func(Event, *models.Session) {
		calls++
		sub.Unsubscribe()
	})
	h.sim.OnAuthStateChange(func(Event, *models.Session) { panic("listener bug") })

	ctx := context.Background()
	h.sim.SignInWithPassword(ctx, "buyer", "pw")
	h.sim.SignOut(ctx)
	assert.Equal(t, 1, calls)
}

func TestGetSession_expiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{SessionTTL: time.Hour})

	var events int
	h.sim.OnAuthStateChange(func(Event, *models.Session) { events++ })
	require.Nil(t, h.sim.SignInWithPassword(ctx, "buyer", "pw").Error)
	assert.Equal(t, 1, events)

	h.clock.Advance(59 * time.Minute)
	assert.NotNil(t, h.sim.GetSession(ctx).Data.Session)

	h.clock.Advance(time.Minute)
	assert.Nil(t, h.sim.GetSession(ctx).Data.Session)
	assert.Nil(t, h.sim.GetUser(ctx).Data.User)
	assert.False(t, h.env.Store.Present(ctx, store.SessionKey))
	assert.Equal(t, 1, events)
}

func TestEnsureProfile_creates_missing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	user := models.User{ID: "ext-9", Email: "ext@example.com", UserMetadata: models.UserMetadata{Role: "teacher"}}
	p, err := h.sim.EnsureProfile(ctx, user)
	require.Nil(t, err)
	assert.Equal(t, "ext-9", p.ID)
	assert.Equal(t, models.RoleTeacher, p.Role)
	assert.Equal(t, "ext", p.FullName)

	again, err := h.sim.EnsureProfile(ctx, user)
	require.Nil(t, err)
	assert.Equal(t, p, again)
	assert.Len(t, query.New(h.env, "profiles").Eq("id", "ext-9").Execute(ctx).Rows(), 1)
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.sim.SignInWithPassword(ctx, "teacher", "pw")

	require.NoError(t, h.sim.ClearSession(ctx))
	assert.False(t, h.env.Store.Info(ctx).HasDemoData)

	// next read reseeds
	assert.Len(t, query.New(h.env, "events").Execute(ctx).Rows(), 6)
}

func TestAccessToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{SessionTTL: time.Hour})

	res := h.sim.SignInWithPassword(ctx, "teacher@demo.com", "pw")
	require.Nil(t, res.Error)
	token := res.Data.Session.AccessToken
	require.NotEmpty(t, token)

	claims, err := h.sim.VerifyAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.Subject)
	assert.Equal(t, "teacher", claims.Role)

	_, err = h.sim.VerifyAccessToken(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	h.clock.Advance(2 * time.Hour)
	_, err = h.sim.VerifyAccessToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_revoked_when_session_ends(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	first := h.sim.SignInWithPassword(ctx, "teacher@demo.com", "pw").Data.Session.AccessToken
	_, err := h.sim.VerifyAccessToken(ctx, first)
	require.NoError(t, err)

	h.sim.SignOut(ctx)
	_, err = h.sim.VerifyAccessToken(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// a newer session supersedes the older token
	h.sim.SignInWithPassword(ctx, "teacher@demo.com", "pw")
	h.clock.Advance(time.Minute)
	h.sim.SignInWithPassword(ctx, "buyer@demo.com", "pw")
	_, err = h.sim.VerifyAccessToken(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, h.sim.ClearSession(ctx))
	current := h.sim.SignInWithPassword(ctx, "buyer@demo.com", "pw").Data.Session.AccessToken
	require.NoError(t, h.sim.ClearSession(ctx))
	_, err = h.sim.VerifyAccessToken(ctx, current)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStrictPasswords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{VerifyPasswords: true})

	res := h.sim.SignUp(ctx, "strict@example.com", "s3cret", models.UserMetadata{})
	require.Nil(t, res.Error)
	h.sim.SignOut(ctx)

	assert.NotNil(t, h.sim.SignInWithPassword(ctx, "strict@example.com", "wrong").Error)
	assert.Nil(t, h.sim.SignInWithPassword(ctx, "strict@example.com", "s3cret").Error)

	// demo accounts have no stored hash
	assert.Nil(t, h.sim.SignInWithPassword(ctx, "buyer@demo.com", "whatever").Error)

	profile := query.New(h.env, "profiles").Eq("email", "strict@example.com").Single().Execute(ctx)
	for k := range profile.Row() {
		assert.False(t, strings.Contains(k, "password"))
	}
}

type recordingPublisher struct{ changes []StateChange }

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, c StateChange) error {
	p.changes = append(p.changes, c)
	return nil
}

func TestPublisher_and_Relay(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	a := newHarness(t, Options{Publisher: pub})
	b := newHarness(t, Options{})

	var seen []Event
	b.sim.OnAuthStateChange(func(e Event, _ *models.Session) { seen = append(seen, e) })

	a.sim.SignInWithPassword(ctx, "buyer", "pw")
	require.Len(t, pub.changes, 1)
	assert.Equal(t, a.sim.ID(), pub.changes[0].Origin)

	b.sim.Relay(pub.changes[0])
	a.sim.Relay(pub.changes[0])
	assert.Equal(t, []Event{EventSignedIn}, seen)
}
