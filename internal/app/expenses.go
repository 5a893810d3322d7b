/**
 * @description
 * Expense lifecycle logic. Expenses enter as `pending` and leave through
 * exactly one terminal transition: approved (requires a payment proof URL and
 * sufficient fund balance) or rejected (requires a reason).
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/famtree/ledger-service/internal/domain"
	"github.com/famtree/ledger-service/internal/store"
	"github.com/google/uuid"
)

// Routing keys for expense ledger events.
const (
	eventExpenseApproved = "ledger.expense.approved"
	eventExpenseRejected = "ledger.expense.rejected"
)

// CreateExpense records a new pending expense against a fund. The balance is
// not checked here: it is only enforced at approval time, against the balance
// that exists then.
func (s *Service) CreateExpense(ctx context.Context, fundID uuid.UUID, req domain.CreateExpenseRequest) (*domain.Expense, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Description == "" {
		return nil, ErrMissingDescription
	}
	if _, err := s.repo.GetFundByID(ctx, fundID); err != nil {
		return nil, err
	}

	expense := &domain.Expense{
		ID:          uuid.New(),
		FundID:      fundID,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Recipient:   req.Recipient,
		PlannedDate: req.PlannedDate,
		ReceiptURLs: req.ReceiptURLs,
		Status:      domain.ExpenseStatusPending,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

// GetExpense retrieves one expense by id.
func (s *Service) GetExpense(ctx context.Context, expenseID uuid.UUID) (*domain.Expense, error) {
	return s.repo.GetExpenseByID(ctx, expenseID)
}

// ListExpenses retrieves a page of a fund's expenses, newest first.
func (s *Service) ListExpenses(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Expense, error) {
	if _, err := s.repo.GetFundByID(ctx, fundID); err != nil {
		return nil, err
	}
	return s.repo.ListExpensesByFund(ctx, fundID, opts)
}

// UpdateExpense edits a pending expense. Finalized expenses are immutable.
func (s *Service) UpdateExpense(ctx context.Context, expenseID uuid.UUID, req domain.UpdateExpenseRequest) (*domain.Expense, error) {
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.UpdateExpense(ctx, expenseID, req)
}

// DeleteExpense soft-deletes a pending expense.
func (s *Service) DeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	return s.repo.SoftDeleteExpense(ctx, expenseID)
}

// ApproveExpense transitions a pending expense to approved and debits the fund
// balance, as one atomic unit. A payment proof URL is mandatory, and the debit
// must not drive the balance negative.
func (s *Service) ApproveExpense(ctx context.Context, expenseID uuid.UUID, approverID uuid.UUID, proofURL string, notes string) (*domain.Expense, error) {
	if proofURL == "" {
		return nil, ErrMissingPaymentProof
	}
	expense, err := s.repo.ApproveExpense(ctx, expenseID, store.ApproveExpenseParams{
		ApproverID:      approverID,
		Notes:           notes,
		PaymentProofURL: proofURL,
		ApprovedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, eventExpenseApproved, domain.LedgerEvent{
		FundID:     expense.FundID,
		EntityID:   expense.ID,
		EntityKind: "expense",
		Status:     expense.Status,
		Amount:     expense.Amount,
		ActorID:    approverID,
		Timestamp:  time.Now().UTC(),
	})
	return expense, nil
}

// RejectExpense transitions a pending expense to rejected. The balance is
// untouched because pending expenses were never counted.
func (s *Service) RejectExpense(ctx context.Context, expenseID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Expense, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}
	expense, err := s.repo.RejectExpense(ctx, expenseID, rejecterID, reason)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, eventExpenseRejected, domain.LedgerEvent{
		FundID:     expense.FundID,
		EntityID:   expense.ID,
		EntityKind: "expense",
		Status:     expense.Status,
		Amount:     expense.Amount,
		ActorID:    rejecterID,
		Timestamp:  time.Now().UTC(),
	})
	return expense, nil
}
