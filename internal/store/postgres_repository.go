/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for fund records, along with the sentinel errors and shared helpers used by the
 * donation and expense repository files.
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
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrFundNotFound       = errors.New("fund not found")
	ErrDonationNotFound   = errors.New("donation not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrDonationFinalized  = errors.New("donation is no longer pending")
	ErrExpenseFinalized   = errors.New("expense is no longer pending")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateOrderCode = errors.New("order code already exists")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fundColumns = `
	id, kind, name, COALESCE(note, '') AS note, current_balance,
	bank_account_number, bank_code, bank_name, bank_holder_name,
	manager_ids, deleted_at, created_at, updated_at
`

func scanFund(row pgx.Row) (*domain.Fund, error) {
	var fund domain.Fund
	err := row.Scan(
		&fund.ID,
		&fund.Kind,
		&fund.Name,
		&fund.Note,
		&fund.CurrentBalance,
		&fund.BankAccount.AccountNumber,
		&fund.BankAccount.BankCode,
		&fund.BankAccount.BankName,
		&fund.BankAccount.HolderName,
		&fund.ManagerIDs,
		&fund.DeletedAt,
		&fund.CreatedAt,
		&fund.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fund, nil
}

// CreateFund inserts a new fund record into the database.
func (r *PostgresRepository) CreateFund(ctx context.Context, fund *domain.Fund) error {
	query := `
		INSERT INTO funds (
			id, kind, name, note, current_balance,
			bank_account_number, bank_code, bank_name, bank_holder_name, manager_ids
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		fund.ID,
		fund.Kind,
		fund.Name,
		fund.Note,
		fund.CurrentBalance,
		fund.BankAccount.AccountNumber,
		fund.BankAccount.BankCode,
		fund.BankAccount.BankName,
		fund.BankAccount.HolderName,
		fund.ManagerIDs,
	)
	return err
}

// GetFundByID retrieves a fund by id. Soft-deleted funds are treated as absent.
func (r *PostgresRepository) GetFundByID(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE id = $1 AND deleted_at IS NULL`
	fund, err := scanFund(r.db.QueryRow(ctx, query, fundID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return fund, nil
}

// ListFunds retrieves a page of funds, optionally filtered by owner kind.
func (r *PostgresRepository) ListFunds(ctx context.Context, kind string, opts domain.ListOptions) ([]domain.Fund, error) {
	limit, offset := normalizeListOptions(opts)

	query := `SELECT ` + fundColumns + ` FROM funds WHERE deleted_at IS NULL`
	args := []interface{}{}
	argPos := 1
	if kind != "" {
		query += ` AND kind = $1`
		args = append(args, kind)
		argPos++
	}
	query += orderLimitOffset("created_at DESC", argPos)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funds := make([]domain.Fund, 0, limit)
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		funds = append(funds, *fund)
	}
	return funds, rows.Err()
}

// UpdateFund updates fund metadata. The current balance is intentionally not
// updatable here; it only moves through ConfirmDonation and ApproveExpense.
func (r *PostgresRepository) UpdateFund(ctx context.Context, fundID uuid.UUID, req domain.UpdateFundRequest) (*domain.Fund, error) {
	var (
		accountNumber, bankCode, bankName, holderName *string
		bankSet                                       bool
	)
	if req.BankAccount != nil {
		bankSet = true
		accountNumber = req.BankAccount.AccountNumber
		bankCode = req.BankAccount.BankCode
		bankName = req.BankAccount.BankName
		holderName = req.BankAccount.HolderName
	}

	var managerIDs []uuid.UUID
	if len(req.ManagerIDs) > 0 {
		managerIDs = req.ManagerIDs
	}

	query := `
		UPDATE funds
		SET
			name = COALESCE($1, name),
			note = COALESCE($2, note),
			bank_account_number = CASE WHEN $3 THEN $4 ELSE bank_account_number END,
			bank_code = CASE WHEN $3 THEN $5 ELSE bank_code END,
			bank_name = CASE WHEN $3 THEN $6 ELSE bank_name END,
			bank_holder_name = CASE WHEN $3 THEN $7 ELSE bank_holder_name END,
			manager_ids = COALESCE($8, manager_ids),
			updated_at = NOW()
		WHERE id = $9 AND deleted_at IS NULL
		RETURNING ` + fundColumns

	fund, err := scanFund(r.db.QueryRow(ctx, query,
		req.Name,
		req.Note,
		bankSet,
		accountNumber,
		bankCode,
		bankName,
		holderName,
		managerIDs,
		fundID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return fund, nil
}

// SoftDeleteFund marks a fund and its child donations and expenses as deleted
// in a single transaction. Nothing is physically removed.
func (r *PostgresRepository) SoftDeleteFund(ctx context.Context, fundID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE funds SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		fundID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFundNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE donations SET deleted_at = NOW(), updated_at = NOW() WHERE fund_id = $1 AND deleted_at IS NULL`,
		fundID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE expenses SET deleted_at = NOW(), updated_at = NOW() WHERE fund_id = $1 AND deleted_at IS NULL`,
		fundID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
