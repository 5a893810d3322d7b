/**
 * @description
 * PostgreSQL implementation of the donation portion of the `Repository`
 * interface. ConfirmDonation is one of the two reconciliation points of the
 * ledger: the pending -> confirmed transition and the fund balance increment
 * are applied inside a single transaction with row-level locks.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/famtree/ledger-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const donationColumns = `
	id, fund_id, donor_member_id, donor_name, amount, method,
	COALESCE(notes, '') AS notes, status, order_code, gateway_transaction_id,
	confirmed_by, confirmed_at, confirmation_notes,
	deleted_at, created_at, updated_at
`

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(
		&d.ID,
		&d.FundID,
		&d.DonorMemberID,
		&d.DonorName,
		&d.Amount,
		&d.Method,
		&d.Notes,
		&d.Status,
		&d.OrderCode,
		&d.GatewayTransactionID,
		&d.ConfirmedBy,
		&d.ConfirmedAt,
		&d.ConfirmationNotes,
		&d.DeletedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDonation inserts a new donation record. The unique index on order_code
// is the collision backstop for generated codes.
func (r *PostgresRepository) CreateDonation(ctx context.Context, donation *domain.Donation) error {
	query := `
		INSERT INTO donations (
			id, fund_id, donor_member_id, donor_name, amount, method, notes, status, order_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		donation.ID,
		donation.FundID,
		donation.DonorMemberID,
		donation.DonorName,
		donation.Amount,
		donation.Method,
		donation.Notes,
		donation.Status,
		donation.OrderCode,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOrderCode
		}
		return err
	}
	return nil
}

// GetDonationByID retrieves a donation by id. Soft-deleted rows are absent.
func (r *PostgresRepository) GetDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1 AND deleted_at IS NULL`
	donation, err := scanDonation(r.db.QueryRow(ctx, query, donationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return donation, nil
}

// GetDonationByOrderCode resolves the gateway's correlation key to a donation.
func (r *PostgresRepository) GetDonationByOrderCode(ctx context.Context, orderCode string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE order_code = $1 AND deleted_at IS NULL`
	donation, err := scanDonation(r.db.QueryRow(ctx, query, orderCode))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return donation, nil
}

// ListDonationsByFund retrieves a page of a fund's donations, newest first.
func (r *PostgresRepository) ListDonationsByFund(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Donation, error) {
	limit, offset := normalizeListOptions(opts)
	query := `SELECT ` + donationColumns + ` FROM donations WHERE fund_id = $1 AND deleted_at IS NULL` +
		orderLimitOffset("created_at DESC", 2)

	rows, err := r.db.Query(ctx, query, fundID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := make([]domain.Donation, 0, limit)
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *donation)
	}
	return donations, rows.Err()
}

// UpdateDonation edits a pending donation's amount and notes. A finalized
// donation is immutable, enforced here with a status guard in the WHERE clause.
func (r *PostgresRepository) UpdateDonation(ctx context.Context, donationID uuid.UUID, req domain.UpdateDonationRequest) (*domain.Donation, error) {
	query := `
		UPDATE donations
		SET
			amount = COALESCE($1, amount),
			notes = COALESCE($2, notes),
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL AND status = 'pending'
		RETURNING ` + donationColumns

	donation, err := scanDonation(r.db.QueryRow(ctx, query, req.Amount, req.Notes, donationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.donationMissReason(ctx, donationID)
		}
		return nil, err
	}
	return donation, nil
}

// SoftDeleteDonation marks a pending donation as deleted.
func (r *PostgresRepository) SoftDeleteDonation(ctx context.Context, donationID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE donations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL AND status = 'pending'`,
		donationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.donationMissReason(ctx, donationID)
	}
	return nil
}

// ConfirmDonation applies the pending -> confirmed transition and the balance
// increment as one atomic unit. The donation row is locked first, then the fund
// row; the balance is re-read under the lock, never from an earlier request
// read. Lock order is always donation-then-fund, matching ApproveExpense's
// expense-then-fund order so concurrent transitions on one fund queue instead
// of deadlocking.
func (r *PostgresRepository) ConfirmDonation(ctx context.Context, donationID uuid.UUID, params ConfirmDonationParams) (*domain.Donation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		fundID uuid.UUID
		status string
		amount int64
	)
	err = tx.QueryRow(ctx,
		`SELECT fund_id, status, amount FROM donations WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		donationID,
	).Scan(&fundID, &status, &amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	if status != domain.DonationStatusPending {
		return nil, ErrDonationFinalized
	}

	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT current_balance FROM funds WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		fundID,
	).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFundNotFound
		}
		return nil, err
	}

	confirmedAt := params.ConfirmedAt
	donation, err := scanDonation(tx.QueryRow(ctx, `
		UPDATE donations
		SET
			status = 'confirmed',
			confirmed_by = $1,
			confirmed_at = $2,
			confirmation_notes = $3,
			gateway_transaction_id = COALESCE($4, gateway_transaction_id),
			updated_at = NOW()
		WHERE id = $5
		RETURNING `+donationColumns,
		params.ConfirmerID,
		confirmedAt,
		params.Notes,
		params.GatewayTransactionID,
		donationID,
	))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE funds SET current_balance = current_balance + $1, updated_at = NOW() WHERE id = $2`,
		amount, fundID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return donation, nil
}

// RejectDonation applies the pending -> rejected transition. The fund balance
// is untouched.
func (r *PostgresRepository) RejectDonation(ctx context.Context, donationID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Donation, error) {
	query := `
		UPDATE donations
		SET
			status = 'rejected',
			confirmed_by = $1,
			confirmed_at = NOW(),
			confirmation_notes = $2,
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL AND status = 'pending'
		RETURNING ` + donationColumns

	donation, err := scanDonation(r.db.QueryRow(ctx, query, rejecterID, reason, donationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.donationMissReason(ctx, donationID)
		}
		return nil, err
	}
	return donation, nil
}

// FailDonation applies the pending -> failed transition after an unsuccessful
// gateway callback. The fund balance is untouched.
func (r *PostgresRepository) FailDonation(ctx context.Context, donationID uuid.UUID, gatewayTransactionID *string) (*domain.Donation, error) {
	query := `
		UPDATE donations
		SET
			status = 'failed',
			gateway_transaction_id = COALESCE($1, gateway_transaction_id),
			updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL AND status = 'pending'
		RETURNING ` + donationColumns

	donation, err := scanDonation(r.db.QueryRow(ctx, query, gatewayTransactionID, donationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.donationMissReason(ctx, donationID)
		}
		return nil, err
	}
	return donation, nil
}

// donationMissReason distinguishes "row absent" from "row finalized" after a
// status-guarded statement matched nothing.
func (r *PostgresRepository) donationMissReason(ctx context.Context, donationID uuid.UUID) error {
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT status FROM donations WHERE id = $1 AND deleted_at IS NULL`,
		donationID,
	).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrDonationNotFound
		}
		return err
	}
	return ErrDonationFinalized
}
