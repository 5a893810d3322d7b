/**
 * @description
 * Donation lifecycle logic. Donations enter as `pending` and leave through
 * exactly one terminal transition: confirmed (by a manager or a gateway
 * callback), rejected (by a manager), or failed (by a gateway callback).
 *
 * Key features:
 * - Bank-transfer donations are only persisted after the gateway accepted the
 *   QR-issuance request, so a gateway outage never strands half-created rows.
 * - ResolveOrderCode implements idempotent webhook reconciliation: duplicate
 *   callbacks and callbacks racing a manual confirmation are acknowledged
 *   without a second balance application.
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
	"github.com/google/uuid"
)

// Routing keys for donation ledger events.
const (
	eventDonationConfirmed = "ledger.donation.confirmed"
	eventDonationRejected  = "ledger.donation.rejected"
	eventDonationFailed    = "ledger.donation.failed"
)

// CreateDonation records a new pending donation against a fund. Bank-transfer
// donations additionally get a payment QR issued by the gateway; nothing is
// persisted if that call fails.
func (s *Service) CreateDonation(ctx context.Context, fundID uuid.UUID, req domain.CreateDonationRequest) (*domain.CreateDonationResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Method != domain.PaymentMethodCash && req.Method != domain.PaymentMethodBankTransfer {
		return nil, ErrInvalidPaymentMethod
	}

	fund, err := s.repo.GetFundByID(ctx, fundID)
	if err != nil {
		return nil, err
	}

	donorName := req.DonorName
	if donorName == "" {
		donorName = "Anonymous"
	}

	donation := &domain.Donation{
		ID:            uuid.New(),
		FundID:        fund.ID,
		DonorMemberID: req.DonorMemberID,
		DonorName:     donorName,
		Amount:        req.Amount,
		Method:        req.Method,
		Notes:         req.Notes,
		Status:        domain.DonationStatusPending,
	}

	if req.Method == domain.PaymentMethodCash {
		if err := s.repo.CreateDonation(ctx, donation); err != nil {
			return nil, fmt.Errorf("create donation: %w", err)
		}
		return &domain.CreateDonationResult{Donation: donation, RequiresManualAction: true}, nil
	}

	// Bank transfer: the fund must carry complete receiving-account metadata,
	// and the gateway must accept the QR request before we persist anything.
	if !fund.BankAccount.Complete() {
		return nil, ErrBankAccountIncomplete
	}

	orderCode := paygate.GenerateOrderCode()
	qrCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	qr, err := s.gateway.CreatePaymentQR(qrCtx, paygate.CreateQRRequest{
		OrderCode:         orderCode,
		BankCode:          stringValue(fund.BankAccount.BankCode),
		AccountNumber:     stringValue(fund.BankAccount.AccountNumber),
		AccountHolderName: stringValue(fund.BankAccount.HolderName),
		Amount:            req.Amount,
		Description:       fmt.Sprintf("Donation to %s", fund.Name),
	})
	if err != nil {
		return nil, err
	}

	donation.OrderCode = &orderCode
	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		// The order code space is 128 bits of UUID entropy; a collision means
		// something is repeating codes upstream. One retry with a fresh code.
		if errors.Is(err, store.ErrDuplicateOrderCode) {
			retry := paygate.GenerateOrderCode()
			donation.OrderCode = &retry
			if err := s.repo.CreateDonation(ctx, donation); err != nil {
				return nil, fmt.Errorf("create donation: %w", err)
			}
		} else {
			return nil, fmt.Errorf("create donation: %w", err)
		}
	}

	return &domain.CreateDonationResult{Donation: donation, QRCodeURL: qr.Data.QRCodeURL}, nil
}

// GetDonation retrieves one donation by id.
func (s *Service) GetDonation(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	return s.repo.GetDonationByID(ctx, donationID)
}

// ListDonations retrieves a page of a fund's donations, newest first.
func (s *Service) ListDonations(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Donation, error) {
	if _, err := s.repo.GetFundByID(ctx, fundID); err != nil {
		return nil, err
	}
	return s.repo.ListDonationsByFund(ctx, fundID, opts)
}

// UpdateDonation edits a pending donation. Finalized donations are immutable.
func (s *Service) UpdateDonation(ctx context.Context, donationID uuid.UUID, req domain.UpdateDonationRequest) (*domain.Donation, error) {
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.UpdateDonation(ctx, donationID, req)
}

// DeleteDonation soft-deletes a pending donation.
func (s *Service) DeleteDonation(ctx context.Context, donationID uuid.UUID) error {
	return s.repo.SoftDeleteDonation(ctx, donationID)
}

// ConfirmDonation transitions a pending donation to confirmed and credits the
// fund balance, as one atomic unit.
func (s *Service) ConfirmDonation(ctx context.Context, donationID uuid.UUID, confirmerID uuid.UUID, notes string) (*domain.Donation, error) {
	donation, err := s.repo.ConfirmDonation(ctx, donationID, store.ConfirmDonationParams{
		ConfirmerID: confirmerID,
		Notes:       notes,
		ConfirmedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDonationFinalized) {
			if cur, getErr := s.repo.GetDonationByID(ctx, donationID); getErr == nil && cur.Status == domain.DonationStatusConfirmed {
				return nil, ErrDonationAlreadyConfirmed
			}
		}
		return nil, err
	}

	s.publishEvent(ctx, eventDonationConfirmed, domain.LedgerEvent{
		FundID:     donation.FundID,
		EntityID:   donation.ID,
		EntityKind: "donation",
		Status:     donation.Status,
		Amount:     donation.Amount,
		ActorID:    confirmerID,
		Timestamp:  time.Now().UTC(),
	})
	return donation, nil
}

// RejectDonation transitions a pending donation to rejected. The balance is
// untouched because pending donations were never counted.
func (s *Service) RejectDonation(ctx context.Context, donationID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Donation, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}
	donation, err := s.repo.RejectDonation(ctx, donationID, rejecterID, reason)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, eventDonationRejected, domain.LedgerEvent{
		FundID:     donation.FundID,
		EntityID:   donation.ID,
		EntityKind: "donation",
		Status:     donation.Status,
		Amount:     donation.Amount,
		ActorID:    rejecterID,
		Timestamp:  time.Now().UTC(),
	})
	return donation, nil
}

// ResolveOrderCode reconciles a gateway callback against the donation that
// carries its order code. The operation is idempotent: callbacks for already
// finalized donations are acknowledged without applying anything twice.
func (s *Service) ResolveOrderCode(ctx context.Context, cb domain.GatewayCallback) error {
	donation, err := s.repo.GetDonationByOrderCode(ctx, cb.OrderCode)
	if err != nil {
		return err
	}

	switch {
	case paygate.SuccessStatus(cb.Status):
		if donation.Status == domain.DonationStatusConfirmed {
			log.Printf("level=info component=ledger_service msg=\"callback for already confirmed donation, skipping\" order_code=%s", cb.OrderCode)
			return nil
		}
		if donation.Finalized() {
			log.Printf("level=warn component=ledger_service msg=\"success callback for finalized donation, skipping\" order_code=%s status=%s", cb.OrderCode, donation.Status)
			return nil
		}

		var txID *string
		if cb.TransactionID != "" {
			txID = &cb.TransactionID
		}
		confirmed, err := s.repo.ConfirmDonation(ctx, donation.ID, store.ConfirmDonationParams{
			ConfirmerID:          s.systemConfirmerID,
			Notes:                "Confirmed automatically by payment gateway",
			GatewayTransactionID: txID,
			ConfirmedAt:          time.Now().UTC(),
		})
		if err != nil {
			// Lost the race against a manual confirmation; the balance was
			// applied exactly once either way.
			if errors.Is(err, store.ErrDonationFinalized) {
				return nil
			}
			return err
		}

		s.publishEvent(ctx, eventDonationConfirmed, domain.LedgerEvent{
			FundID:     confirmed.FundID,
			EntityID:   confirmed.ID,
			EntityKind: "donation",
			Status:     confirmed.Status,
			Amount:     confirmed.Amount,
			ActorID:    s.systemConfirmerID,
			Timestamp:  time.Now().UTC(),
		})
		return nil

	case paygate.FailureStatus(cb.Status):
		if donation.Finalized() {
			log.Printf("level=info component=ledger_service msg=\"failure callback for finalized donation, skipping\" order_code=%s status=%s", cb.OrderCode, donation.Status)
			return nil
		}

		var txID *string
		if cb.TransactionID != "" {
			txID = &cb.TransactionID
		}
		failed, err := s.repo.FailDonation(ctx, donation.ID, txID)
		if err != nil {
			if errors.Is(err, store.ErrDonationFinalized) {
				return nil
			}
			return err
		}

		s.publishEvent(ctx, eventDonationFailed, domain.LedgerEvent{
			FundID:     failed.FundID,
			EntityID:   failed.ID,
			EntityKind: "donation",
			Status:     failed.Status,
			Amount:     failed.Amount,
			ActorID:    s.systemConfirmerID,
			Timestamp:  time.Now().UTC(),
		})
		return nil

	default:
		// Intermediate statuses (processing, created, ...) carry no transition.
		log.Printf("level=info component=ledger_service msg=\"callback with non-terminal status, leaving donation pending\" order_code=%s status=%s", cb.OrderCode, cb.Status)
		return nil
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
