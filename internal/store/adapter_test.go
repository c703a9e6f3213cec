package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently-demo/backend/internal/models"
)

func TestAdapter_Read_fallbacks(t *testing.T) {
	ctx := context.Background()
	medium := NewMemoryMedium()
	a := NewAdapter(medium, "demo_", nil)

	fallback := []models.Record{{"id": "fb"}}

	// absent
	got := Read(ctx, a, "events", fallback)
	assert.Equal(t, fallback, got)

	// corrupt
	medium.Raw("demo_events", "{not json")
	got = Read(ctx, a, "events", fallback)
	assert.Equal(t, fallback, got)

	// present
	medium.Raw("demo_events", `[{"id":"1","price":150000}]`)
	got = Read(ctx, a, "events", fallback)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0]["id"])
	assert.Equal(t, float64(150000), got[0]["price"])
}

func TestAdapter_unavailable_medium(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(UnavailableMedium{}, "demo_", nil)

	assert.Equal(t, 7, Read(ctx, a, "anything", 7))
	res := a.Write(ctx, "anything", 1)
	assert.False(t, res.Persisted)
	assert.ErrorIs(t, res.Err, ErrUnavailable)
	assert.False(t, a.Present(ctx, "anything"))
}

func TestAdapter_Write_quota_is_reported_not_raised(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryMediumWithQuota(16), "demo_", nil)

	res := a.Write(ctx, "small", "ok")
	assert.True(t, res.Persisted)

	res = a.Write(ctx, "big", "this value is far too large for the quota")
	assert.False(t, res.Persisted)
	assert.ErrorIs(t, res.Err, ErrQuotaExceeded)
	assert.False(t, a.Present(ctx, "big"))
}

func TestAdapter_Write_unencodable_value(t *testing.T) {
	a := NewAdapter(NewMemoryMedium(), "demo_", nil)

	res := a.Write(context.Background(), "bad", map[string]any{"ch": make(chan int)})
	assert.False(t, res.Persisted)
	assert.Error(t, res.Err)
}

func TestAdapter_ClearAll_and_Info(t *testing.T) {
	ctx := context.Background()
	medium := NewMemoryMedium()
	a := NewAdapter(medium, "demo_", nil)
	medium.Raw("unrelated", "keep")

	for _, name := range AllKeys() {
		require.True(t, a.Write(ctx, name, []int{}).Persisted)
	}
	info := a.Info(ctx)
	assert.True(t, info.HasDemoData)
	assert.ElementsMatch(t, []string{
		"demo_session", "demo_events", "demo_profiles", "demo_participants", "demo_wishlist",
	}, info.DemoKeys)

	require.NoError(t, a.ClearAll(ctx))
	info = a.Info(ctx)
	assert.False(t, info.HasDemoData)
	assert.Empty(t, info.DemoKeys)

	v, ok, _ := medium.Get(ctx, "unrelated")
	assert.True(t, ok)
	assert.Equal(t, "keep", v)
}
