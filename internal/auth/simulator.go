// Package auth emulates the authentication backend: password sign-in against
// demo accounts and stored profiles, sign-up, a single persisted session and
// synchronous state-change notification.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/internal/mutation"
	"github.com/evently-demo/backend/internal/query"
	"github.com/evently-demo/backend/internal/seed"
	"github.com/evently-demo/backend/internal/store"
)

// DefaultSessionTTL is how long a session lives when Options leaves it unset.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Payload is the data half of an auth response. Fields that do not apply to
// an operation are nil.
type Payload struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// Response is what every simulator operation resolves to.
type Response struct {
	Data  Payload       `json:"data"`
	Error *models.Error `json:"error"`
}

// StateChange is one transition, as carried across process boundaries.
type StateChange struct {
	Event   Event           `json:"event"`
	Session *models.Session `json:"session"`
	Origin  string          `json:"origin"`
}

// Publisher forwards local transitions to other processes.
type Publisher interface {
	PublishAuthEvent(ctx context.Context, change StateChange) error
}

// Options configures a Simulator.
type Options struct {
	SessionTTL      time.Duration
	Tokens          *TokenIssuer
	VerifyPasswords bool
	Publisher       Publisher
}

// Simulator is one isolated auth backend bound to an Env.
type Simulator struct {
	id              string
	env             *engine.Env
	ttl             time.Duration
	tokens          *TokenIssuer
	verifyPasswords bool
	publisher       Publisher
	listeners       *registry
	logger          *zap.Logger
	newUserID       func() string
}

func newUserID() string { return "user-" + uuid.NewString() }

// NewSimulator creates a simulator over env.
func NewSimulator(env *engine.Env, opts Options) *Simulator {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	logger := env.Logger.With(zap.String("component", "auth"))
	return &Simulator{
		id:              uuid.NewString(),
		env:             env,
		ttl:             opts.SessionTTL,
		tokens:          opts.Tokens,
		verifyPasswords: opts.VerifyPasswords,
		publisher:       opts.Publisher,
		listeners:       &registry{logger: logger},
		logger:          logger,
		newUserID:       newUserID,
	}
}

// ID identifies this simulator instance in cross-process events.
func (s *Simulator) ID() string { return s.id }

// SetPublisher attaches a cross-process publisher after construction.
func (s *Simulator) SetPublisher(p Publisher) { s.publisher = p }

// Tokens returns the access token issuer, or nil when tokens are disabled.
func (s *Simulator) Tokens() *TokenIssuer { return s.tokens }

// SignInWithPassword authenticates a demo account (by email or alias) or a
// stored profile by email. Any non-empty password is accepted unless strict
// verification is on and the account has a stored hash.
func (s *Simulator) SignInWithPassword(ctx context.Context, email, password string) Response {
	s.env.Prepare(ctx)
	if password == "" {
		s.logger.Debug("sign-in rejected: empty password", zap.String("email", email))
		return Response{Error: models.InvalidCredentials()}
	}

	user, ok := seed.DemoUser(email)
	if !ok {
		res := query.New(s.env, string(models.TableProfiles)).Eq("email", email).Limit(1).Execute(ctx)
		rows := res.Rows()
		if res.Error != nil || len(rows) == 0 {
			s.logger.Debug("sign-in rejected: unknown account", zap.String("email", email))
			return Response{Error: models.InvalidCredentials()}
		}
		user = userFromProfile(rows[0])
	}
	if !s.passwordAccepted(ctx, user.Email, password) {
		s.logger.Debug("sign-in rejected: wrong password", zap.String("email", email))
		return Response{Error: models.InvalidCredentials()}
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return Response{Error: models.Internal(err.Error())}
	}
	return Response{Data: Payload{User: &session.User, Session: session}}
}

// SignUp creates a profile under a fresh user id and signs the new user in.
// If the profile cannot be created no session is started.
func (s *Simulator) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) Response {
	s.env.Prepare(ctx)

	user := models.User{
		ID:    s.newUserID(),
		Email: email,
		UserMetadata: models.UserMetadata{
			FullName: displayName(meta.FullName, email),
			Role:     string(models.ParseRole(meta.Role)),
		},
	}
	res := mutation.NewInsert(s.env, string(models.TableProfiles), models.Record{
		"id":        user.ID,
		"full_name": user.UserMetadata.FullName,
		"role":      user.UserMetadata.Role,
		"email":     email,
	}).Execute(ctx)
	if res.Error != nil {
		s.logger.Warn("sign-up profile not created", zap.String("user_id", user.ID), zap.Error(res.Error))
		return Response{Error: res.Error}
	}

	if s.verifyPasswords && password != "" {
		if err := s.storeCredential(ctx, email, password); err != nil {
			s.logger.Warn("sign-up credential not stored", zap.String("email", email), zap.Error(err))
		}
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return Response{Error: models.Internal(err.Error())}
	}
	return Response{Data: Payload{User: &session.User, Session: session}}
}

// SignOut clears the session and notifies listeners with a nil session.
func (s *Simulator) SignOut(ctx context.Context) Response {
	s.env.Store.Remove(ctx, store.SessionKey)
	s.logger.Info("signed out")
	s.emit(ctx, EventSignedOut, nil)
	return Response{}
}

// GetSession returns the current session, or nil when there is none. An
// expired session is cleared without notifying anyone.
func (s *Simulator) GetSession(ctx context.Context) Response {
	return Response{Data: Payload{Session: s.currentSession(ctx)}}
}

// GetUser returns the user of the current session, or nil.
func (s *Simulator) GetUser(ctx context.Context) Response {
	session := s.currentSession(ctx)
	if session == nil {
		return Response{}
	}
	return Response{Data: Payload{User: &session.User}}
}

// OnAuthStateChange registers cb for every subsequent transition. Listeners
// run synchronously, in registration order, before the triggering call
// returns.
func (s *Simulator) OnAuthStateChange(cb Listener) *Subscription {
	return &Subscription{id: s.listeners.add(cb), registry: s.listeners}
}

// ListenerCount reports how many listeners are registered.
func (s *Simulator) ListenerCount() int { return s.listeners.len() }

// EnsureProfile returns the profile of user, creating it from the user's
// metadata when it does not exist yet.
func (s *Simulator) EnsureProfile(ctx context.Context, user models.User) (models.Profile, *models.Error) {
	var profile models.Profile

	res := query.New(s.env, string(models.TableProfiles)).Eq("id", user.ID).Single().Execute(ctx)
	if res.Error == nil {
		if err := models.Decode(res.Data, &profile); err != nil {
			return profile, models.Internal(err.Error())
		}
		return profile, nil
	}
	if res.Error.Code != models.CodeNotFound {
		return profile, res.Error
	}

	ins := mutation.NewInsert(s.env, string(models.TableProfiles), models.Record{
		"id":        user.ID,
		"full_name": displayName(user.UserMetadata.FullName, user.Email),
		"role":      string(models.ParseRole(user.UserMetadata.Role)),
		"email":     user.Email,
	}).Execute(ctx)
	if ins.Error != nil {
		if ins.Error.Code == models.CodeDuplicate {
			// created concurrently
			return s.EnsureProfile(ctx, user)
		}
		return profile, ins.Error
	}
	s.logger.Info("profile created", zap.String("user_id", user.ID))
	if err := models.Decode(ins.Data, &profile); err != nil {
		return profile, models.Internal(err.Error())
	}
	return profile, nil
}

// ClearSession signs out and removes every collection, so the next operation
// starts from a freshly seeded dataset.
func (s *Simulator) ClearSession(ctx context.Context) error {
	s.SignOut(ctx)
	s.env.Store.Remove(ctx, credentialsKey)
	return s.env.Store.ClearAll(ctx)
}

// VerifyAccessToken validates a session access token. The token must also
// belong to the active session, so it stops working at sign-out.
func (s *Simulator) VerifyAccessToken(ctx context.Context, token string) (*Claims, error) {
	if s.tokens == nil {
		return nil, ErrInvalidToken
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	session := s.currentSession(ctx)
	if session == nil || session.AccessToken != token {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Relay delivers a transition received from another process to the local
// listeners. Transitions this simulator published itself are ignored.
func (s *Simulator) Relay(change StateChange) {
	if change.Origin == s.id {
		return
	}
	s.listeners.notify(change.Event, change.Session)
}

func (s *Simulator) startSession(ctx context.Context, user models.User) (*models.Session, error) {
	now := s.env.Clock.Now()
	expires := now.Add(s.ttl)
	session := &models.Session{User: user, ExpiresAt: expires.Unix()}
	if s.tokens != nil {
		token, err := s.tokens.Issue(user, now, expires)
		if err != nil {
			return nil, fmt.Errorf("issue access token: %w", err)
		}
		session.AccessToken = token
	}
	if w := s.env.Store.Write(ctx, store.SessionKey, session); !w.Persisted {
		s.logger.Warn("session not persisted", zap.String("user_id", user.ID), zap.Error(w.Err))
	}
	s.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("email", user.Email))
	s.emit(ctx, EventSignedIn, session)
	return session, nil
}

func (s *Simulator) currentSession(ctx context.Context) *models.Session {
	var session models.Session
	if !s.env.Store.ReadInto(ctx, store.SessionKey, &session) {
		return nil
	}
	if session.Expired(s.env.Clock.Now().Unix()) {
		s.logger.Debug("session expired", zap.String("user_id", session.User.ID))
		s.env.Store.Remove(ctx, store.SessionKey)
		return nil
	}
	return &session
}

func (s *Simulator) emit(ctx context.Context, event Event, session *models.Session) {
	s.listeners.notify(event, session)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAuthEvent(ctx, StateChange{Event: event, Session: session, Origin: s.id}); err != nil {
		s.logger.Warn("auth event not published", zap.String("event", string(event)), zap.Error(err))
	}
}

func userFromProfile(p models.Record) models.User {
	return models.User{
		ID:    p.String("id"),
		Email: p.String("email"),
		UserMetadata: models.UserMetadata{
			FullName: p.String("full_name"),
			Role:     string(models.ParseRole(p.String("role"))),
		},
	}
}

func displayName(fullName, email string) string {
	if fullName != "" {
		return fullName
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
