/**
 * @description
 * This file contains the core business logic for the ledger-service. The `Service`
 * struct orchestrates fund, donation, and expense operations, coordinating between
 * the database repository, the payment gateway client, and the message broker.
 *
 * Key features:
 * - Implements fund CRUD and the read-only aggregate queries.
 * - Owns the donation and expense lifecycle state machines (see donations.go
 *   and expenses.go).
 * - Balance mutations happen only inside the repository's atomic confirm and
 *   approve operations; this layer never writes a balance directly.
 * - Publishes ledger events to RabbitMQ for asynchronous processing by the
 *   notification service. Publishing is best-effort and never rolls back a
 *   committed transition.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/paygate, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/famtree/ledger-service/internal/domain"
	"github.com/famtree/ledger-service/internal/store"
	"github.com/famtree/ledger-service/pkg/paygate"
	"github.com/famtree/ledger-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

var (
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInvalidPaymentMethod     = errors.New("payment method must be 'cash' or 'bank_transfer'")
	ErrInvalidFundKind          = errors.New("fund kind must be 'fund' or 'campaign'")
	ErrEmptyFundName            = errors.New("fund name is required")
	ErrBankAccountIncomplete    = errors.New("fund bank account metadata is incomplete")
	ErrDonationAlreadyConfirmed = errors.New("donation is already confirmed")
	ErrMissingPaymentProof      = errors.New("payment proof is required for approval")
	ErrMissingReason            = errors.New("a rejection reason is required")
	ErrMissingDescription       = errors.New("expense description is required")
)

// QRIssuer is the narrow slice of the payment gateway the service depends on.
type QRIssuer interface {
	CreatePaymentQR(ctx context.Context, req paygate.CreateQRRequest) (*paygate.QRResponse, error)
}

// Service provides the core business logic for the fund ledger.
type Service struct {
	repo              store.Repository
	gateway           QRIssuer
	events            rabbitmq.Publisher
	eventExchange     string
	systemConfirmerID uuid.UUID
	gatewayTimeout    time.Duration
}

// NewService creates a new ledger service instance. The system confirmer id is
// the identity recorded on donations confirmed by gateway callbacks rather
// than by a human manager.
func NewService(repo store.Repository, gateway QRIssuer, events rabbitmq.Publisher, eventExchange string, systemConfirmerID uuid.UUID, gatewayTimeout time.Duration) *Service {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Service{
		repo:              repo,
		gateway:           gateway,
		events:            events,
		eventExchange:     eventExchange,
		systemConfirmerID: systemConfirmerID,
		gatewayTimeout:    gatewayTimeout,
	}
}

// CreateFund creates a new fund or campaign with a zero balance.
func (s *Service) CreateFund(ctx context.Context, req domain.CreateFundRequest) (*domain.Fund, error) {
	kind := req.Kind
	if kind == "" {
		kind = domain.FundKindFund
	}
	if kind != domain.FundKindFund && kind != domain.FundKindCampaign {
		return nil, ErrInvalidFundKind
	}
	if req.Name == "" {
		return nil, ErrEmptyFundName
	}

	fund := &domain.Fund{
		ID:          uuid.New(),
		Kind:        kind,
		Name:        req.Name,
		Note:        req.Note,
		BankAccount: req.BankAccount,
		ManagerIDs:  req.ManagerIDs,
	}
	if err := s.repo.CreateFund(ctx, fund); err != nil {
		return nil, fmt.Errorf("create fund: %w", err)
	}
	return s.repo.GetFundByID(ctx, fund.ID)
}

// GetFund retrieves one fund by id.
func (s *Service) GetFund(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error) {
	return s.repo.GetFundByID(ctx, fundID)
}

// ListFunds retrieves a page of funds, optionally filtered by kind.
func (s *Service) ListFunds(ctx context.Context, kind string, opts domain.ListOptions) ([]domain.Fund, error) {
	if kind != "" && kind != domain.FundKindFund && kind != domain.FundKindCampaign {
		return nil, ErrInvalidFundKind
	}
	return s.repo.ListFunds(ctx, kind, opts)
}

// UpdateFund updates fund metadata. The balance cannot be set through here.
func (s *Service) UpdateFund(ctx context.Context, fundID uuid.UUID, req domain.UpdateFundRequest) (*domain.Fund, error) {
	return s.repo.UpdateFund(ctx, fundID, req)
}

// DeleteFund soft-deletes a fund together with its donations and expenses.
func (s *Service) DeleteFund(ctx context.Context, fundID uuid.UUID) error {
	return s.repo.SoftDeleteFund(ctx, fundID)
}

// GetFundStats returns per-status aggregates for one fund.
func (s *Service) GetFundStats(ctx context.Context, fundID uuid.UUID) (*domain.FundStats, error) {
	return s.repo.GetFundStats(ctx, fundID)
}

// ListTopDonors returns the confirmed-donation ranking for one fund.
func (s *Service) ListTopDonors(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.TopDonor, error) {
	if _, err := s.repo.GetFundByID(ctx, fundID); err != nil {
		return nil, err
	}
	return s.repo.ListTopDonors(ctx, fundID, limit)
}

// ListPendingItems returns everything awaiting a manager's decision on one fund.
func (s *Service) ListPendingItems(ctx context.Context, fundID uuid.UUID) (*domain.PendingItems, error) {
	if _, err := s.repo.GetFundByID(ctx, fundID); err != nil {
		return nil, err
	}
	return s.repo.ListPendingItems(ctx, fundID)
}

// publishEvent sends a ledger event to the broker. Failures are logged and
// swallowed: the ledger transition already committed and must stand.
func (s *Service) publishEvent(ctx context.Context, routingKey string, event domain.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=ledger_service msg=\"event publish failed\" routing_key=%s entity_id=%s err=%v", routingKey, event.EntityID, err)
	}
}
