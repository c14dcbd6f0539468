package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache reported a hit")
	}

	c.Set("k", "v")

	v, ok := c.Get("k")

	if !ok || v != "v" {
		t.Fatalf("Get(k) = (%v, %v)", v, ok)
	}

	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Fatal("deleted key still present")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("entry survived past its TTL")
	}
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("Clear left entries behind")
	}
}
