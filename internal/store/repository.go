/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation and handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/famtree/ledger-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
//
// ConfirmDonation, ApproveExpense, and FailDonation are the reconciliation
// points of the ledger: each applies a status transition together with its
// balance effect as one atomic unit. Implementations must serialize these
// operations per fund (row locking or an equivalent single-writer protocol)
// and must re-read the balance inside the atomic unit.
type Repository interface {
	// Fund methods
	CreateFund(ctx context.Context, fund *domain.Fund) error
	GetFundByID(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error)
	ListFunds(ctx context.Context, kind string, opts domain.ListOptions) ([]domain.Fund, error)
	UpdateFund(ctx context.Context, fundID uuid.UUID, req domain.UpdateFundRequest) (*domain.Fund, error)
	// SoftDeleteFund marks the fund and all of its donations and expenses as
	// deleted in one transaction. Rows are never physically removed.
	SoftDeleteFund(ctx context.Context, fundID uuid.UUID) error

	// Donation methods
	CreateDonation(ctx context.Context, donation *domain.Donation) error
	GetDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error)
	GetDonationByOrderCode(ctx context.Context, orderCode string) (*domain.Donation, error)
	ListDonationsByFund(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Donation, error)
	UpdateDonation(ctx context.Context, donationID uuid.UUID, req domain.UpdateDonationRequest) (*domain.Donation, error)
	SoftDeleteDonation(ctx context.Context, donationID uuid.UUID) error
	ConfirmDonation(ctx context.Context, donationID uuid.UUID, params ConfirmDonationParams) (*domain.Donation, error)
	RejectDonation(ctx context.Context, donationID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Donation, error)
	FailDonation(ctx context.Context, donationID uuid.UUID, gatewayTransactionID *string) (*domain.Donation, error)

	// Expense methods
	CreateExpense(ctx context.Context, expense *domain.Expense) error
	GetExpenseByID(ctx context.Context, expenseID uuid.UUID) (*domain.Expense, error)
	ListExpensesByFund(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Expense, error)
	UpdateExpense(ctx context.Context, expenseID uuid.UUID, req domain.UpdateExpenseRequest) (*domain.Expense, error)
	SoftDeleteExpense(ctx context.Context, expenseID uuid.UUID) error
	ApproveExpense(ctx context.Context, expenseID uuid.UUID, params ApproveExpenseParams) (*domain.Expense, error)
	RejectExpense(ctx context.Context, expenseID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Expense, error)

	// Aggregate methods
	GetFundStats(ctx context.Context, fundID uuid.UUID) (*domain.FundStats, error)
	ListTopDonors(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.TopDonor, error)
	ListPendingItems(ctx context.Context, fundID uuid.UUID) (*domain.PendingItems, error)
}

// ConfirmDonationParams carries the confirmation metadata recorded alongside a
// donation's pending -> confirmed transition.
type ConfirmDonationParams struct {
	ConfirmerID          uuid.UUID
	Notes                string
	GatewayTransactionID *string
	ConfirmedAt          time.Time
}

// ApproveExpenseParams carries the approval metadata recorded alongside an
// expense's pending -> approved transition.
type ApproveExpenseParams struct {
	ApproverID      uuid.UUID
	Notes           string
	PaymentProofURL string
	ApprovedAt      time.Time
}
