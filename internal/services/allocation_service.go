package services

import (
	"fmt"
	"time"
	"voucher-api/internal/models"
	"voucher-api/pkg/logging"
)

// Notifier sends the purchase confirmation with the bound voucher.
// Implementations are best-effort: the engine swallows their errors.
type Notifier interface {
	SendVoucherEmail(recipient, name string, voucher *models.Voucher, txn *models.Transaction) error
}

// AllocationService reconciles gateway callbacks with the local ledger and
// the voucher pool. It holds no in-process locks: multiple handlers may run
// ProcessCallback concurrently for the same logical payment, and all
// coordination happens through the store's conditional updates — the
// voucher claim (used=false guard) and the transaction bind
// (status=PENDING guard).
type AllocationService struct {
	vouchers     *VoucherService
	transactions *TransactionService
	matcher      *Matcher
	notifier     Notifier
	dedupe       *CallbackDedupe
	validity     time.Duration
}

// NewAllocationService creates a new allocation service. notifier and
// dedupe may be nil; both are best-effort collaborators.
func NewAllocationService(vouchers *VoucherService, transactions *TransactionService, matcher *Matcher, notifier Notifier, dedupe *CallbackDedupe, validity time.Duration) *AllocationService {
	return &AllocationService{
		vouchers:     vouchers,
		transactions: transactions,
		matcher:      matcher,
		notifier:     notifier,
		dedupe:       dedupe,
		validity:     validity,
	}
}

const noVoucherNote = "payment successful but no voucher available"

// ProcessCallback drives one gateway notification to its outcome and
// returns the transaction as recorded after processing. Safe to re-invoke
// with the same event: terminal rows short-circuit to the recorded outcome
// and the claim/bind writes are conditional.
func (s *AllocationService) ProcessCallback(event *models.CallbackEvent) (*models.Transaction, error) {
	status := models.NormalizeStatus(event.Status)
	if status == "" {
		return nil, fmt.Errorf("unrecognized callback status %q", event.Status)
	}

	if s.dedupe != nil && !s.dedupe.FirstDelivery(event.ID, status) {
		// Observational only: the conditional writes below are what make
		// replays harmless, the store stays the source of truth.
		logging.Infof("Duplicate delivery of callback %s (%s)", event.ID, status)
	}

	txn, err := s.matcher.Resolve(event)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.StatusPending:
		return s.processPending(event, txn)
	case models.StatusSuccessful:
		return s.processSuccess(event, txn)
	default:
		return s.processNegative(event, txn, status)
	}
}

// processPending handles a progress ping. Nothing to allocate; if the
// callback arrived before the local record, create one so later callbacks
// have something to match.
func (s *AllocationService) processPending(event *models.CallbackEvent, txn *models.Transaction) (*models.Transaction, error) {
	if txn != nil {
		return txn, nil
	}
	created, err := s.createFromCallback(event, models.StatusPending)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// processSuccess drives PENDING -> SUCCESSFUL exactly once, claiming a
// voucher when inventory allows.
func (s *AllocationService) processSuccess(event *models.CallbackEvent, txn *models.Transaction) (*models.Transaction, error) {
	if txn == nil {
		// Correlation miss: the callback beat the local record, or the
		// heuristic failed. Record the payment so it is not lost, then
		// allocate against the fresh row.
		logging.Warnf("No pending transaction for successful callback %s (%s), creating one", event.ID, event.SenderEmail)
		created, err := s.createFromCallback(event, models.StatusPending)
		if err != nil {
			return nil, err
		}
		txn = created
	}

	if txn.IsTerminal() {
		// Idempotency contract: replays of a resolved payment return the
		// recorded outcome without touching inventory.
		logging.Infof("Callback %s replayed against terminal transaction %d (%s)", event.ID, txn.ID, txn.Status)
		return txn, nil
	}

	if txn.VoucherCode != nil {
		// A voucher is already bound but the status flip did not land
		// (interrupted earlier run). Skip claiming, finish the transition.
		return s.finishWithExistingBinding(event, txn)
	}

	voucher, err := s.vouchers.ClaimForProduct(txn.ProductName, event.SenderEmail, s.validity)
	if err != nil {
		return nil, err
	}

	if voucher == nil {
		// Inventory exhaustion is a business condition, not a payment
		// failure: the payment stays successful, operators get flagged.
		logging.Warnf("No voucher available for product %q, transaction %d completes without a code", txn.ProductName, txn.ID)
		ok, err := s.transactions.MarkSuccessfulNoVoucher(txn.ID, event.ID, event.BillLinkID, noVoucherNote)
		if err != nil {
			return nil, err
		}
		if !ok {
			logging.Infof("Transaction %d resolved concurrently, returning recorded outcome", txn.ID)
		}
		return s.transactions.GetByID(txn.ID)
	}

	now := time.Now()
	bound, err := s.transactions.BindVoucher(txn.ID, voucher.Code, event.ID, event.BillLinkID, now, *voucher.ExpiryDate)
	if err != nil {
		// Partial commit: the claim landed but the bind did not. Release
		// so the voucher is not stranded on a row that never references it.
		logging.Errorf("Bind failed for transaction %d, releasing voucher %s: %v", txn.ID, voucher.Code, err)
		if relErr := s.vouchers.Release(voucher.Code); relErr != nil {
			logging.Errorf("Compensating release of voucher %s failed: %v", voucher.Code, relErr)
		}
		return nil, err
	}
	if !bound {
		// A concurrent delivery won the bind. Our claim is surplus.
		logging.Infof("Transaction %d already bound by a concurrent delivery, releasing voucher %s", txn.ID, voucher.Code)
		if relErr := s.vouchers.Release(voucher.Code); relErr != nil {
			logging.Errorf("Compensating release of voucher %s failed: %v", voucher.Code, relErr)
		}
		return s.transactions.GetByID(txn.ID)
	}

	result, err := s.transactions.GetByID(txn.ID)
	if err != nil {
		return nil, err
	}

	s.notify(result, voucher)
	return result, nil
}

// finishWithExistingBinding completes an interrupted success transition
// whose voucher claim already landed. No new claim is made.
func (s *AllocationService) finishWithExistingBinding(event *models.CallbackEvent, txn *models.Transaction) (*models.Transaction, error) {
	ok, err := s.transactions.MarkSuccessfulNoVoucher(txn.ID, event.ID, event.BillLinkID, "")
	if err != nil {
		return nil, err
	}
	result, getErr := s.transactions.GetByID(txn.ID)
	if getErr != nil {
		return nil, getErr
	}
	if ok && result != nil && result.VoucherCode != nil {
		if voucher, vErr := s.vouchers.GetByCode(*result.VoucherCode); vErr == nil && voucher != nil {
			s.notify(result, voucher)
		}
	}
	return result, nil
}

// processNegative drives a terminal negative transition. A transaction that
// already went SUCCESSFUL may still be cancelled or refunded by the
// gateway, in which case its voucher returns to the pool.
func (s *AllocationService) processNegative(event *models.CallbackEvent, txn *models.Transaction, status string) (*models.Transaction, error) {
	if txn == nil {
		// Nothing to roll back; record the callback's own outcome so the
		// ledger reflects what the gateway reported.
		return s.createFromCallback(event, status)
	}

	if txn.Status == status || (txn.IsTerminal() && txn.Status != models.StatusSuccessful) {
		// Already in a terminal negative state: safe no-op.
		return txn, nil
	}

	// Release precedes the status flip so an interruption between the two
	// leaves a releasable voucher, never a stranded one.
	if txn.VoucherCode != nil {
		if err := s.vouchers.Release(*txn.VoucherCode); err != nil {
			return nil, err
		}
	}

	if _, err := s.transactions.MarkTerminal(txn.ID, status, event.ID, event.BillLinkID); err != nil {
		return nil, err
	}
	return s.transactions.GetByID(txn.ID)
}

// createFromCallback records a transaction for a callback that matched no
// local row.
func (s *AllocationService) createFromCallback(event *models.CallbackEvent, status string) (*models.Transaction, error) {
	note := "created from gateway callback"
	txn := &models.Transaction{
		TempID: event.Reference,
		Email:  event.SenderEmail,
		Name:   event.SenderName,
		Amount: event.Amount,
		Status: status,
		Note:   &note,
	}
	if event.ID != "" {
		id := event.ID
		txn.TransactionID = &id
	}
	if event.BillLinkID != nil {
		txn.BillLinkID = event.BillLinkID
	}
	if err := s.transactions.Create(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// notify invokes the notifier and swallows its outcome. A failed email
// never rolls back or fails an allocation that already committed.
func (s *AllocationService) notify(txn *models.Transaction, voucher *models.Voucher) {
	if s.notifier == nil || txn == nil {
		return
	}
	if err := s.notifier.SendVoucherEmail(txn.Email, txn.Name, voucher, txn); err != nil {
		logging.Errorf("Failed to send voucher email for transaction %d: %v", txn.ID, err)
	}
}
