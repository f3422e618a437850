package ps

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionsSince(t *testing.T) {
	persistence, _ := NewMemoryPersistence()

	history, err := persistence.TransactionsSince(time.Time{})
	if err != nil || len(history) != 0 {
		t.Fatalf("Expected empty history, got %v %v", history, err)
	}

	messages := []string{"one", "two", "three"}
	for _, message := range messages {
		if _, err := persistence.SaveSnapshot(sampleSnapshot(), testIdentity, message); err != nil {
			t.Fatalf("Failed to save snapshot: %v", err)
		}
	}

	history, err = persistence.TransactionsSince(time.Time{})
	if err != nil {
		t.Fatalf("TransactionsSince failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(history))
	}
	if history[0].Message != "three" || history[2].Message != "one" {
		t.Errorf("Expected newest first, got %v", history)
	}

	future, err := persistence.TransactionsSince(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("TransactionsSince failed: %v", err)
	}
	if len(future) != 0 {
		t.Errorf("Expected no transactions in the future, got %d", len(future))
	}
}

func TestResolve(t *testing.T) {
	persistence, _ := NewMemoryPersistence()

	if _, err := persistence.Resolve(""); err != ErrNoCheckpoint {
		t.Errorf("Expected ErrNoCheckpoint, got %v", err)
	}

	txn, _ := persistence.SaveSnapshot(sampleSnapshot(), testIdentity, "first")
	persistence.Tag("release", nil)

	for _, id := range []string{"", txn.Id, "release"} {
		resolved, err := persistence.Resolve(id)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", id, err)
		}
		if resolved.Id != txn.Id {
			t.Errorf("Resolve(%q) = %s, expected %s", id, resolved.Id, txn.Id)
		}
	}

	if _, err := persistence.Resolve("deadbeef"); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("Expected ErrNoCheckpoint for an unknown id, got %v", err)
	}
}

func TestTransactionString(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	txn, _ := persistence.SaveSnapshot(Snapshot{}, testIdentity, "first")

	if txn.IsZero() {
		t.Error("Expected a saved transaction to be non-zero")
	}
	if !strings.Contains(txn.String(), txn.Id) || !strings.Contains(txn.String(), "test <test@test.com>") {
		t.Errorf("Unexpected string form: %s", txn)
	}
	if !(Transaction{}).IsZero() {
		t.Error("Expected the zero Transaction to report IsZero")
	}
}
