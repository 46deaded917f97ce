package api

import (
	"testing"

	"github.com/crawlscope/crawlscope/internal/session"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

func testSession(id string) *session.Session {
	return session.New(id, nil, nil, nil, scoring.DefaultWeightTable())
}

func TestSessionCacheEvictsOldest(t *testing.T) {
	c := NewSessionCache(2)
	a, b, d := testSession("a"), testSession("b"), testSession("d")

	c.Put("a", a)
	c.Put("b", b)
	c.Get("a") // a is now most recent
	c.Put("d", d)

	if c.Get("b") != nil {
		t.Error("b should have been evicted")
	}
	if c.Get("a") != a || c.Get("d") != d {
		t.Error("a and d should be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestSessionCacheRemove(t *testing.T) {
	c := NewSessionCache(0)
	c.Put("a", testSession("a"))
	c.Remove("a")
	c.Remove("missing")
	if c.Get("a") != nil || c.Len() != 0 {
		t.Error("Remove left the session cached")
	}
}

func TestSessionCacheFromEnv(t *testing.T) {
	t.Setenv("SESSION_CACHE_SIZE", "3")
	if c := NewSessionCacheFromEnv(); c.maxSize != 3 {
		t.Errorf("maxSize = %d, want 3", c.maxSize)
	}
	t.Setenv("SESSION_CACHE_SIZE", "bogus")
	if c := NewSessionCacheFromEnv(); c.maxSize != 100 {
		t.Errorf("maxSize = %d, want default 100", c.maxSize)
	}
}
