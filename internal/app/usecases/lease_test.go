package usecases

import (
	"testing"
	"time"
)

func TestLeaseExclusivePerKey(t *testing.T) {
	registry := newLeaseRegistry()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if !registry.acquire("store-1", "a", time.Hour, now) {
		t.Fatal("first acquire refused")
	}
	if registry.acquire("store-1", "b", time.Hour, now) {
		t.Error("second acquire on a held key succeeded")
	}
	if !registry.acquire("store-2", "b", time.Hour, now) {
		t.Error("acquire on a different key refused")
	}

	registry.release("store-1", "a")
	if !registry.acquire("store-1", "b", time.Hour, now) {
		t.Error("acquire after release refused")
	}
}

func TestLeaseExpiryIsReclaimable(t *testing.T) {
	registry := newLeaseRegistry()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if !registry.acquire("store-1", "a", time.Minute, now) {
		t.Fatal("acquire refused")
	}
	if registry.acquire("store-1", "b", time.Minute, now.Add(30*time.Second)) {
		t.Error("live lease reclaimed early")
	}
	if !registry.acquire("store-1", "b", time.Minute, now.Add(2*time.Minute)) {
		t.Error("expired lease not reclaimable")
	}

	// the original holder's late release must not free the new lease
	registry.release("store-1", "a")
	if registry.acquire("store-1", "c", time.Minute, now.Add(2*time.Minute)) {
		t.Error("stale release freed the reclaimed lease")
	}
}
