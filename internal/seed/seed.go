// Package seed writes the demo dataset into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/internal/store"
)

const offsetSuffix = "_offset_days"

//go:embed fixtures.jsonc
var fixturesJSONC []byte

type fixtureFile struct {
	Events       []models.Record        `json:"events"`
	Profiles     []models.Record        `json:"profiles"`
	Participants []models.Record        `json:"participants"`
	Wishlist     []models.Record        `json:"wishlist"`
	DemoUsers    map[string]models.User `json:"demo_users"`
}

var fixture fixtureFile

func init() {
	f, err := parse(fixturesJSONC)
	if err != nil {
		panic("seed: embedded fixture is invalid: " + err.Error())
	}
	fixture = *f
}

func parse(data []byte) (*fixtureFile, error) {
	var f fixtureFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

// Collections returns the fixture collections with relative dates resolved
// against now.
func Collections(now time.Time) map[models.Table][]models.Record {
	return map[models.Table][]models.Record{
		models.TableEvents:       resolve(fixture.Events, now),
		models.TableProfiles:     resolve(fixture.Profiles, now),
		models.TableParticipants: resolve(fixture.Participants, now),
		models.TableWishlist:     resolve(fixture.Wishlist, now),
	}
}

// DemoUser looks up a demo account by email or by its short alias.
func DemoUser(emailOrAlias string) (models.User, bool) {
	if u, ok := fixture.DemoUsers[emailOrAlias]; ok {
		return u, true
	}
	for _, u := range fixture.DemoUsers {
		if u.Email == emailOrAlias {
			return u, true
		}
	}
	return models.User{}, false
}

func resolve(rows []models.Record, now time.Time) []models.Record {
	out := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		r := make(models.Record, len(row)+1)
		for k, v := range row {
			field, isOffset := strings.CutSuffix(k, offsetSuffix)
			if !isOffset {
				r[k] = v
				continue
			}
			days, _ := v.(float64)
			r[field] = models.Timestamp(now.Add(time.Duration(days * float64(24*time.Hour))))
		}
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = models.Timestamp(now)
		}
		out = append(out, r)
	}
	return out
}

// Seeder fills an empty store with the demo dataset.
type Seeder struct {
	adapter *store.Adapter
	clock   clock.Clock
	logger  *zap.Logger
}

// NewSeeder creates a seeder writing through adapter.
func NewSeeder(adapter *store.Adapter, clk clock.Clock) *Seeder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Seeder{adapter: adapter, clock: clk, logger: adapter.Logger()}
}

// EnsureSeeded writes all four collections if and only if the events key is
// absent. It reports whether it wrote anything.
func (s *Seeder) EnsureSeeded(ctx context.Context) bool {
	seeded := false
	s.adapter.Exclusive(func() {
		if s.adapter.Present(ctx, string(models.TableEvents)) {
			return
		}
		collections := Collections(s.clock.Now())
		for _, t := range models.Tables {
			if res := s.adapter.Write(ctx, string(t), collections[t]); !res.Persisted {
				s.logger.Warn("seeding collection not persisted", zap.String("table", string(t)), zap.Error(res.Err))
			}
		}
		seeded = true
		s.logger.Info("demo dataset seeded")
	})
	return seeded
}
