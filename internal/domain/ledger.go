/**
 * @description
 * This file defines the core domain models for the ledger-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit, which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Owner kinds for a ledger pool. Funds and campaigns share one shape and one
// lifecycle; the kind tag is what distinguishes them.
const (
	FundKindFund     = "fund"
	FundKindCampaign = "campaign"
)

// Donation statuses. Pending is the only non-terminal state.
const (
	DonationStatusPending   = "pending"
	DonationStatusConfirmed = "confirmed"
	DonationStatusRejected  = "rejected"
	DonationStatusFailed    = "failed"
)

// Expense statuses. Pending is the only non-terminal state.
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Payment methods accepted for donations.
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
)

// Fund represents a monetary pool with a running balance. This struct maps
// directly to the `funds` table in the database. CurrentBalance is mutated only
// by the atomic confirm/approve repository operations, never by generic updates.
type Fund struct {
	ID             uuid.UUID   `json:"id"`
	Kind           string      `json:"kind"` // 'fund' or 'campaign'
	Name           string      `json:"name"`
	Note           string      `json:"note"`
	CurrentBalance int64       `json:"current_balance"`
	BankAccount    BankAccount `json:"bank_account"`
	ManagerIDs     []uuid.UUID `json:"manager_ids"`
	DeletedAt      *time.Time  `json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// BankAccount holds the receiving-account metadata a fund needs before it can
// accept bank-transfer donations. All fields may be absent for cash-only funds.
type BankAccount struct {
	AccountNumber *string `json:"account_number,omitempty"`
	BankCode      *string `json:"bank_code,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	HolderName    *string `json:"holder_name,omitempty"`
}

// Complete reports whether the metadata is sufficient to issue a payment QR.
// The bank code is optional because some gateways resolve it from the account.
func (b BankAccount) Complete() bool {
	return hasValue(b.AccountNumber) && hasValue(b.BankName) && hasValue(b.HolderName)
}

// Donation represents an inbound contribution to a fund, pending confirmation.
// Maps to the `donations` table.
type Donation struct {
	ID                   uuid.UUID  `json:"id"`
	FundID               uuid.UUID  `json:"fund_id"`
	DonorMemberID        *uuid.UUID `json:"donor_member_id,omitempty"`
	DonorName            string     `json:"donor_name"`
	Amount               int64      `json:"amount"`
	Method               string     `json:"method"` // 'cash' or 'bank_transfer'
	Notes                string     `json:"notes"`
	Status               string     `json:"status"`
	OrderCode            *string    `json:"order_code,omitempty"`
	GatewayTransactionID *string    `json:"gateway_transaction_id,omitempty"`
	ConfirmedBy          *uuid.UUID `json:"confirmed_by,omitempty"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	ConfirmationNotes    *string    `json:"confirmation_notes,omitempty"`
	DeletedAt            *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Finalized reports whether the donation has reached a terminal status.
// Terminal donations can no longer be edited, deleted, or transitioned.
func (d *Donation) Finalized() bool {
	return d.Status != DonationStatusPending
}

// Expense represents an outbound monetary request against a fund, pending
// approval. Maps to the `expenses` table.
type Expense struct {
	ID              uuid.UUID  `json:"id"`
	FundID          uuid.UUID  `json:"fund_id"`
	Amount          int64      `json:"amount"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Recipient       string     `json:"recipient"`
	PlannedDate     *time.Time `json:"planned_date,omitempty"`
	ReceiptURLs     []string   `json:"receipt_urls"`
	Status          string     `json:"status"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovalNotes   *string    `json:"approval_notes,omitempty"`
	PaymentProofURL *string    `json:"payment_proof_url,omitempty"`
	DeletedAt       *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Finalized reports whether the expense has reached a terminal status.
func (e *Expense) Finalized() bool {
	return e.Status != ExpenseStatusPending
}

// CreateFundRequest is the DTO for creating a fund or campaign.
type CreateFundRequest struct {
	Kind        string      `json:"kind"`
	Name        string      `json:"name"`
	Note        string      `json:"note"`
	BankAccount BankAccount `json:"bank_account"`
	ManagerIDs  []uuid.UUID `json:"manager_ids"`
}

// UpdateFundRequest is the DTO for updating fund metadata. The balance is
// deliberately absent: it only moves through confirm/approve transitions.
type UpdateFundRequest struct {
	Name        *string      `json:"name,omitempty"`
	Note        *string      `json:"note,omitempty"`
	BankAccount *BankAccount `json:"bank_account,omitempty"`
	ManagerIDs  []uuid.UUID  `json:"manager_ids,omitempty"`
}

// CreateDonationRequest is the DTO for incoming donation creation requests.
type CreateDonationRequest struct {
	DonorMemberID *uuid.UUID `json:"donor_member_id,omitempty"`
	DonorName     string     `json:"donor_name"`
	Amount        int64      `json:"amount"`
	Method        string     `json:"method"`
	Notes         string     `json:"notes"`
}

// CreateDonationResult is returned after a donation is created. For bank
// transfers it carries the QR payload from the gateway; for cash it flags that
// a manager must confirm the donation manually.
type CreateDonationResult struct {
	Donation             *Donation `json:"donation"`
	QRCodeURL            string    `json:"qr_code_url,omitempty"`
	RequiresManualAction bool      `json:"requires_manual_confirmation"`
}

// UpdateDonationRequest is the DTO for editing a pending donation.
type UpdateDonationRequest struct {
	Amount *int64  `json:"amount,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// CreateExpenseRequest is the DTO for incoming expense creation requests.
// Receipt images are uploaded by the blob-storage collaborator beforehand;
// only their URL references are stored here.
type CreateExpenseRequest struct {
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Recipient   string     `json:"recipient"`
	PlannedDate *time.Time `json:"planned_date,omitempty"`
	ReceiptURLs []string   `json:"receipt_urls"`
}

// UpdateExpenseRequest is the DTO for editing a pending expense.
type UpdateExpenseRequest struct {
	Amount      *int64     `json:"amount,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Recipient   *string    `json:"recipient,omitempty"`
	PlannedDate *time.Time `json:"planned_date,omitempty"`
	ReceiptURLs []string   `json:"receipt_urls,omitempty"`
}

// GatewayCallback is the payload the payment gateway posts to the webhook
// endpoint once a bank transfer settles (or fails).
type GatewayCallback struct {
	OrderCode           string `json:"orderCode"`
	Status              string `json:"status"`
	Amount              int64  `json:"amount"`
	TransactionID       string `json:"transactionId,omitempty"`
	TransactionDateTime string `json:"transactionDateTime,omitempty"`
}

// StatusCount is one row of a per-status aggregate.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

// FundStats aggregates donation and expense activity for one fund. Empty
// funds produce zeroed aggregates, never errors.
type FundStats struct {
	FundID                 uuid.UUID     `json:"fund_id"`
	CurrentBalance         int64         `json:"current_balance"`
	Donations              []StatusCount `json:"donations"`
	Expenses               []StatusCount `json:"expenses"`
	AverageConfirmedAmount int64         `json:"average_confirmed_amount"`
}

// TopDonor is one entry of the confirmed-donation ranking for a fund.
type TopDonor struct {
	DonorMemberID *uuid.UUID `json:"donor_member_id,omitempty"`
	DonorName     string     `json:"donor_name"`
	DonationCount int64      `json:"donation_count"`
	TotalAmount   int64      `json:"total_amount"`
}

// PendingItems bundles everything awaiting a manager's decision on one fund.
type PendingItems struct {
	Donations []Donation `json:"donations"`
	Expenses  []Expense  `json:"expenses"`
}

// ListOptions controls pagination for list endpoints.
type ListOptions struct {
	Page     int
	PageSize int
}

// LedgerEvent is the message payload published to RabbitMQ after a ledger
// transition, consumed by the (external) notification service.
type LedgerEvent struct {
	FundID     uuid.UUID `json:"fund_id"`
	EntityID   uuid.UUID `json:"entity_id"`
	EntityKind string    `json:"entity_kind"` // 'donation' or 'expense'
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	ActorID    uuid.UUID `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func hasValue(s *string) bool {
	if s == nil {
		return false
	}
	return *s != ""
}
