// Package client assembles one isolated backend instance and exposes it with
// the same shape a hosted PostgREST/auth/storage client would have.
package client

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/auth"
	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/internal/mutation"
	"github.com/evently-demo/backend/internal/query"
	"github.com/evently-demo/backend/internal/store"
	"github.com/evently-demo/backend/pkg/storage"
)

// DefaultKeyPrefix namespaces every key the engine owns.
const DefaultKeyPrefix = "demo_"

// Deps are the collaborators of a Client. Zero values give an in-memory
// instance on the real clock.
type Deps struct {
	Medium          store.Medium
	KeyPrefix       string
	Clock           clock.Clock
	Logger          *zap.Logger
	Objects         storage.ObjectStore
	SessionTTL      time.Duration
	JWTSecret       string
	VerifyPasswords bool
}

// Client is one backend instance.
type Client struct {
	env     *engine.Env
	Auth    *auth.Simulator
	Storage *Storage
}

// New builds a client and seeds its store if it is empty.
func New(ctx context.Context, deps Deps) *Client {
	if deps.Medium == nil {
		deps.Medium = store.NewMemoryMedium()
	}
	if deps.KeyPrefix == "" {
		deps.KeyPrefix = DefaultKeyPrefix
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Objects == nil {
		deps.Objects = storage.NewMemoryObjectStore("")
	}

	env := engine.NewEnv(store.NewAdapter(deps.Medium, deps.KeyPrefix, deps.Logger), deps.Clock)
	env.Prepare(ctx)

	var tokens *auth.TokenIssuer
	if deps.JWTSecret != "" {
		tokens = auth.NewTokenIssuer(deps.JWTSecret, deps.Clock)
	}
	sim := auth.NewSimulator(env, auth.Options{
		SessionTTL:      deps.SessionTTL,
		Tokens:          tokens,
		VerifyPasswords: deps.VerifyPasswords,
	})
	return &Client{
		env:     env,
		Auth:    sim,
		Storage: &Storage{objects: deps.Objects, env: env},
	}
}

// Env returns the instance environment shared by every builder.
func (c *Client) Env() *engine.Env { return c.env }

// Store returns the key-value adapter.
func (c *Client) Store() *store.Adapter { return c.env.Store }

// From starts an operation on table. The name is validated when the
// operation executes.
func (c *Client) From(table string) TableRef {
	return TableRef{env: c.env, table: table}
}

// TableRef is the entry point for operations on one table.
type TableRef struct {
	env   *engine.Env
	table string
}

// Select starts a query returning the given columns, or whole records when
// none are given.
func (t TableRef) Select(columns ...string) query.Query {
	return query.New(t.env, t.table).Select(columns...)
}

// SelectString starts a query from a select string such as "*, events(*)".
func (t TableRef) SelectString(sel string) query.Query {
	return query.New(t.env, t.table).SelectString(sel)
}

// Insert prepares an insert of the first of rows.
func (t TableRef) Insert(rows ...models.Record) mutation.Insert {
	return mutation.NewInsert(t.env, t.table, rows...)
}

// Update prepares a shallow merge of overrides into matching rows.
func (t TableRef) Update(overrides models.Record) mutation.Update {
	return mutation.NewUpdate(t.env, t.table, overrides)
}

// Delete prepares the removal of matching rows.
func (t TableRef) Delete() mutation.Delete {
	return mutation.NewDelete(t.env, t.table)
}

// Storage is the file side of the client.
type Storage struct {
	objects storage.ObjectStore
	env     *engine.Env
}

// Objects returns the underlying object store.
func (s *Storage) Objects() storage.ObjectStore { return s.objects }

// From selects a bucket.
func (s *Storage) From(bucket string) Bucket {
	return Bucket{objects: s.objects, name: bucket}
}

// UploadAvatar stores an avatar for userID and points the user's profile at
// it. The returned URL is the public one.
func (s *Storage) UploadAvatar(ctx context.Context, userID, contentType string, body io.Reader) (string, *models.Error) {
	if !storage.ValidateAvatarType(contentType) {
		return "", models.InvalidInput("unsupported avatar type: " + contentType)
	}
	url, err := s.From(storage.BucketAvatars).Upload(ctx, storage.AvatarKey(userID, contentType), contentType, body)
	if err != nil {
		return "", err
	}
	res := mutation.NewUpdate(s.env, string(models.TableProfiles), models.Record{"avatar_url": url}).
		Eq("id", userID).Execute(ctx)
	if res.Error != nil {
		return "", res.Error
	}
	if len(res.Rows()) == 0 {
		return "", models.NotFound()
	}
	return url, nil
}

// Bucket is one storage bucket.
type Bucket struct {
	objects storage.ObjectStore
	name    string
}

// Upload stores body at path and returns its public URL.
func (b Bucket) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, *models.Error) {
	url, err := b.objects.Upload(ctx, b.name, path, contentType, body)
	if err != nil {
		return "", models.Internal(err.Error())
	}
	return url, nil
}

// GetPublicURL returns the public URL of path without checking it exists.
func (b Bucket) GetPublicURL(path string) string {
	return b.objects.PublicURL(b.name, path)
}
