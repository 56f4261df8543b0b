package circuitbreaker

import (
	"testing"
	"time"
)

func TestAllow_UnknownKey_Allowed(t *testing.T) {
	cb := New(3, 5*time.Second)
	if err := cb.Allow("analytics"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAllow_BelowThreshold_Allowed(t *testing.T) {
	cb := New(3, 5*time.Second)
	key := "analytics"
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAllow_AtThreshold_Open(t *testing.T) {
	cb := New(3, 5*time.Second)
	key := "analytics"
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	if err := cb.Allow(key); err == nil {
		t.Fatal("expected ErrCircuitOpen, got nil")
	}
}

func TestAllow_OpenAfterCooldown_HalfOpen(t *testing.T) {
	cb := New(3, 10*time.Millisecond)
	key := "analytics"
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	time.Sleep(15 * time.Millisecond)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil (probe allowed), got %v", err)
	}
	if err := cb.Allow(key); err == nil {
		t.Fatal("expected ErrCircuitOpen while half-open probe in flight")
	}
}

func TestRecordSuccess_ResetsToClose(t *testing.T) {
	cb := New(3, 10*time.Millisecond)
	key := "analytics"
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	time.Sleep(15 * time.Millisecond)
	cb.Allow(key)
	cb.RecordSuccess(key)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil after reset, got %v", err)
	}
}

func TestRecordFailure_HalfOpenReOpens(t *testing.T) {
	cb := New(3, 10*time.Millisecond)
	key := "analytics"
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	cb.RecordFailure(key)
	time.Sleep(15 * time.Millisecond)
	cb.Allow(key)
	cb.RecordFailure(key)
	if err := cb.Allow(key); err == nil {
		t.Fatal("expected ErrCircuitOpen after probe failure re-open")
	}
}

func TestIndependentKeys(t *testing.T) {
	cb := New(2, 5*time.Second)
	cb.RecordFailure("a")
	cb.RecordFailure("a")
	if err := cb.Allow("a"); err == nil {
		t.Fatal("expected key a open")
	}
	if err := cb.Allow("b"); err != nil {
		t.Fatalf("expected key b allowed, got %v", err)
	}
}
