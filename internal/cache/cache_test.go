package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCache(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)}
	c := NewWithClock[string, int](2*time.Minute, clock.now)

	_, ok := c.Get("roster")
	require.False(t, ok)

	c.Set("roster", 42)
	v, ok := c.Get("roster")
	require.True(t, ok)
	require.Equal(t, 42, v)

	clock.advance(2*time.Minute - time.Second)
	_, ok = c.Get("roster")
	require.True(t, ok)

	// expiry is exclusive: now - computedAt must be strictly below ttl
	clock.advance(time.Second)
	_, ok = c.Get("roster")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestCacheInvalidation(t *testing.T) {
	c := New[string, string](time.Hour)
	c.Set("d1:standings", "a")
	c.Set("d1:scorecard:bob", "b")
	c.Set("d2:standings", "c")

	c.DeleteFunc(func(k string) bool { return k[:3] == "d1:" })
	require.Equal(t, 1, c.Len())

	c.Delete("d2:standings")
	require.Equal(t, 0, c.Len())

	c.Set("x", "y")
	c.Purge()
	require.Equal(t, 0, c.Len())
	require.Equal(t, time.Hour, c.TTL())
}
