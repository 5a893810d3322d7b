/**
 * @description
 * PostgreSQL implementation of the expense portion of the `Repository`
 * interface. ApproveExpense is the second reconciliation point of the ledger:
 * the pending -> approved transition and the fund balance decrement happen in
 * one transaction, with a guard that refuses to drive the balance negative.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"

	"github.com/famtree/ledger-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const expenseColumns = `
	id, fund_id, amount, description, COALESCE(category, '') AS category,
	COALESCE(recipient, '') AS recipient, planned_date, receipt_urls, status,
	approved_by, approved_at, approval_notes, payment_proof_url,
	deleted_at, created_at, updated_at
`

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(
		&e.ID,
		&e.FundID,
		&e.Amount,
		&e.Description,
		&e.Category,
		&e.Recipient,
		&e.PlannedDate,
		&e.ReceiptURLs,
		&e.Status,
		&e.ApprovedBy,
		&e.ApprovedAt,
		&e.ApprovalNotes,
		&e.PaymentProofURL,
		&e.DeletedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExpense inserts a new expense request record.
func (r *PostgresRepository) CreateExpense(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (
			id, fund_id, amount, description, category, recipient, planned_date, receipt_urls, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		expense.ID,
		expense.FundID,
		expense.Amount,
		expense.Description,
		expense.Category,
		expense.Recipient,
		expense.PlannedDate,
		expense.ReceiptURLs,
		expense.Status,
	)
	return err
}

// GetExpenseByID retrieves an expense by id. Soft-deleted rows are absent.
func (r *PostgresRepository) GetExpenseByID(ctx context.Context, expenseID uuid.UUID) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND deleted_at IS NULL`
	expense, err := scanExpense(r.db.QueryRow(ctx, query, expenseID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return expense, nil
}

// ListExpensesByFund retrieves a page of a fund's expenses, newest first.
func (r *PostgresRepository) ListExpensesByFund(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Expense, error) {
	limit, offset := normalizeListOptions(opts)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE fund_id = $1 AND deleted_at IS NULL` +
		orderLimitOffset("created_at DESC", 2)

	rows, err := r.db.Query(ctx, query, fundID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, rows.Err()
}

// UpdateExpense edits a pending expense. A finalized expense is immutable,
// enforced with a status guard in the WHERE clause.
func (r *PostgresRepository) UpdateExpense(ctx context.Context, expenseID uuid.UUID, req domain.UpdateExpenseRequest) (*domain.Expense, error) {
	var receiptURLs []string
	if len(req.ReceiptURLs) > 0 {
		receiptURLs = req.ReceiptURLs
	}

	query := `
		UPDATE expenses
		SET
			amount = COALESCE($1, amount),
			description = COALESCE($2, description),
			category = COALESCE($3, category),
			recipient = COALESCE($4, recipient),
			planned_date = COALESCE($5, planned_date),
			receipt_urls = COALESCE($6, receipt_urls),
			updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL AND status = 'pending'
		RETURNING ` + expenseColumns

	expense, err := scanExpense(r.db.QueryRow(ctx, query,
		req.Amount,
		req.Description,
		req.Category,
		req.Recipient,
		req.PlannedDate,
		receiptURLs,
		expenseID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.expenseMissReason(ctx, expenseID)
		}
		return nil, err
	}
	return expense, nil
}

// SoftDeleteExpense marks a pending expense as deleted.
func (r *PostgresRepository) SoftDeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE expenses SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL AND status = 'pending'`,
		expenseID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.expenseMissReason(ctx, expenseID)
	}
	return nil
}

// ApproveExpense applies the pending -> approved transition and the balance
// decrement as one atomic unit. The expense row is locked first, then the fund
// row; the balance is re-read under the lock and the decrement is refused when
// it would drive the balance negative, leaving both rows unchanged.
func (r *PostgresRepository) ApproveExpense(ctx context.Context, expenseID uuid.UUID, params ApproveExpenseParams) (*domain.Expense, error) {
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
		`SELECT fund_id, status, amount FROM expenses WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		expenseID,
	).Scan(&fundID, &status, &amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	if status != domain.ExpenseStatusPending {
		return nil, ErrExpenseFinalized
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
	if balance < amount {
		return nil, ErrInsufficientFunds
	}

	expense, err := scanExpense(tx.QueryRow(ctx, `
		UPDATE expenses
		SET
			status = 'approved',
			approved_by = $1,
			approved_at = $2,
			approval_notes = $3,
			payment_proof_url = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING `+expenseColumns,
		params.ApproverID,
		params.ApprovedAt,
		params.Notes,
		params.PaymentProofURL,
		expenseID,
	))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE funds SET current_balance = current_balance - $1, updated_at = NOW() WHERE id = $2`,
		amount, fundID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return expense, nil
}

// RejectExpense applies the pending -> rejected transition. The fund balance
// is untouched.
func (r *PostgresRepository) RejectExpense(ctx context.Context, expenseID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Expense, error) {
	query := `
		UPDATE expenses
		SET
			status = 'rejected',
			approved_by = $1,
			approved_at = NOW(),
			approval_notes = $2,
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL AND status = 'pending'
		RETURNING ` + expenseColumns

	expense, err := scanExpense(r.db.QueryRow(ctx, query, rejecterID, reason, expenseID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.expenseMissReason(ctx, expenseID)
		}
		return nil, err
	}
	return expense, nil
}

// expenseMissReason distinguishes "row absent" from "row finalized" after a
// status-guarded statement matched nothing.
func (r *PostgresRepository) expenseMissReason(ctx context.Context, expenseID uuid.UUID) error {
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT status FROM expenses WHERE id = $1 AND deleted_at IS NULL`,
		expenseID,
	).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrExpenseNotFound
		}
		return err
	}
	return ErrExpenseFinalized
}
