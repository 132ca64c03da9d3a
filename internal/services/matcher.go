package services

import (
	"fmt"
	"voucher-api/internal/models"
	"voucher-api/pkg/logging"
)

// Matcher correlates an inbound gateway callback with a local transaction.
//
// Lookup order: gateway transaction id, then the gateway's bill link id,
// then the echoed client temp_id, and finally the documented heuristic on
// (email, amount, PENDING, no gateway id yet), newest first. The heuristic
// is best-effort; the token paths above it are exact.
type Matcher struct {
	transactions *TransactionService
}

// NewMatcher creates a new matcher
func NewMatcher(transactions *TransactionService) *Matcher {
	return &Matcher{transactions: transactions}
}

// Resolve returns the transaction the event belongs to, or nil when no
// local record matches any lookup path.
func (m *Matcher) Resolve(event *models.CallbackEvent) (*models.Transaction, error) {
	if event.ID != "" {
		txn, err := m.transactions.GetByTransactionID(event.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup by transaction id failed: %w", err)
		}
		if txn != nil {
			return txn, nil
		}
	}

	if event.BillLinkID != nil {
		txn, err := m.transactions.GetByBillLinkID(*event.BillLinkID)
		if err != nil {
			return nil, fmt.Errorf("lookup by bill link id failed: %w", err)
		}
		if txn != nil {
			return txn, nil
		}
	}

	if event.Reference != "" {
		txn, err := m.transactions.GetByTempID(event.Reference)
		if err != nil {
			return nil, fmt.Errorf("lookup by reference failed: %w", err)
		}
		if txn != nil {
			return txn, nil
		}
	}

	if event.SenderEmail == "" {
		return nil, nil
	}

	txn, err := m.transactions.FindPendingByEmailAmount(event.SenderEmail, event.Amount)
	if err != nil {
		return nil, fmt.Errorf("heuristic lookup failed: %w", err)
	}
	if txn != nil {
		logging.Infof("Callback %s matched transaction %d via email+amount heuristic", event.ID, txn.ID)
	}
	return txn, nil
}
