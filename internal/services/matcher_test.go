package services

import (
	"testing"
	"time"
	"voucher-api/internal/models"
)

func TestResolve_ByGatewayTransactionID(t *testing.T) {
	db := newTestDB(t)
	transactions := NewTransactionService(db)
	matcher := NewMatcher(transactions)

	txn := seedPending(t, db, "tmp-1", "a@x.com", "Tea", 10000, time.Now())
	gatewayID := "TX1"
	db.Model(txn).Update("transaction_id", gatewayID)

	got, err := matcher.Resolve(&models.CallbackEvent{ID: "TX1", Amount: 99999, SenderEmail: "other@x.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got == nil || got.ID != txn.ID {
		t.Fatalf("expected transaction %d, got %+v", txn.ID, got)
	}
}

func TestResolve_ByBillLinkID(t *testing.T) {
	db := newTestDB(t)
	transactions := NewTransactionService(db)
	matcher := NewMatcher(transactions)

	txn := seedPending(t, db, "tmp-1", "a@x.com", "Tea", 10000, time.Now())
	db.Model(txn).Update("bill_link_id", int64(42))

	billLink := int64(42)
	got, err := matcher.Resolve(&models.CallbackEvent{ID: "UNSEEN", BillLinkID: &billLink})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got == nil || got.ID != txn.ID {
		t.Fatalf("expected transaction %d, got %+v", txn.ID, got)
	}
}

func TestResolve_ByReference(t *testing.T) {
	db := newTestDB(t)
	transactions := NewTransactionService(db)
	matcher := NewMatcher(transactions)

	txn := seedPending(t, db, "tmp-token", "a@x.com", "Tea", 10000, time.Now())

	got, err := matcher.Resolve(&models.CallbackEvent{ID: "UNSEEN", Reference: "tmp-token"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got == nil || got.ID != txn.ID {
		t.Fatalf("expected transaction %d, got %+v", txn.ID, got)
	}
}

func TestResolve_HeuristicPicksNewestPending(t *testing.T) {
	db := newTestDB(t)
	transactions := NewTransactionService(db)
	matcher := NewMatcher(transactions)

	seedPending(t, db, "tmp-old", "a@x.com", "Tea", 10000, time.Now().Add(-2*time.Hour))
	newest := seedPending(t, db, "tmp-new", "a@x.com", "Tea", 10000, time.Now().Add(-time.Minute))

	got, err := matcher.Resolve(&models.CallbackEvent{ID: "UNSEEN", Amount: 10000, SenderEmail: "a@x.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got == nil || got.ID != newest.ID {
		t.Fatalf("expected newest pending %d, got %+v", newest.ID, got)
	}
}

func TestResolve_HeuristicIgnoresTaggedAndTerminalRows(t *testing.T) {
	db := newTestDB(t)
	transactions := NewTransactionService(db)
	matcher := NewMatcher(transactions)

	tagged := seedPending(t, db, "tmp-tagged", "a@x.com", "Tea", 10000, time.Now())
	db.Model(tagged).Update("transaction_id", "TX-OTHER")
	done := seedPending(t, db, "tmp-done", "a@x.com", "Tea", 10000, time.Now())
	db.Model(done).Update("status", models.StatusSuccessful)

	got, err := matcher.Resolve(&models.CallbackEvent{ID: "UNSEEN", Amount: 10000, SenderEmail: "a@x.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no match, got transaction %d", got.ID)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	db := newTestDB(t)
	matcher := NewMatcher(NewTransactionService(db))

	got, err := matcher.Resolve(&models.CallbackEvent{ID: "TX1", Amount: 10000, SenderEmail: "a@x.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
