/**
 * @description
 * Read-only aggregate queries over the ledger: per-fund donation/expense
 * statistics, top-donor ranking, and the pending-items listing managers review.
 * Empty funds yield zeroed aggregates and empty slices, never errors.
 */

package store

import (
	"context"

	"github.com/famtree/ledger-service/internal/domain"
	"github.com/google/uuid"
)

// GetFundStats returns counts and sums per status for both donations and
// expenses of one fund, plus the average confirmed donation amount.
func (r *PostgresRepository) GetFundStats(ctx context.Context, fundID uuid.UUID) (*domain.FundStats, error) {
	fund, err := r.GetFundByID(ctx, fundID)
	if err != nil {
		return nil, err
	}

	stats := &domain.FundStats{
		FundID:         fundID,
		CurrentBalance: fund.CurrentBalance,
		Donations:      []domain.StatusCount{},
		Expenses:       []domain.StatusCount{},
	}

	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM donations
		WHERE fund_id = $1 AND deleted_at IS NULL
		GROUP BY status
		ORDER BY status
	`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Total); err != nil {
			return nil, err
		}
		stats.Donations = append(stats.Donations, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE fund_id = $1 AND deleted_at IS NULL
		GROUP BY status
		ORDER BY status
	`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Total); err != nil {
			return nil, err
		}
		stats.Expenses = append(stats.Expenses, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(amount), 0)::bigint
		FROM donations
		WHERE fund_id = $1 AND deleted_at IS NULL AND status = 'confirmed'
	`, fundID).Scan(&stats.AverageConfirmedAmount)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// ListTopDonors ranks donors of one fund by total confirmed amount. Anonymous
// donations group by display name; registered donors group by member id.
func (r *PostgresRepository) ListTopDonors(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.TopDonor, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	rows, err := r.db.Query(ctx, `
		SELECT donor_member_id, MIN(donor_name), COUNT(*), SUM(amount)
		FROM donations
		WHERE fund_id = $1 AND deleted_at IS NULL AND status = 'confirmed'
		GROUP BY donor_member_id, CASE WHEN donor_member_id IS NULL THEN donor_name ELSE '' END
		ORDER BY SUM(amount) DESC
		LIMIT $2
	`, fundID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donors := make([]domain.TopDonor, 0, limit)
	for rows.Next() {
		var donor domain.TopDonor
		if err := rows.Scan(&donor.DonorMemberID, &donor.DonorName, &donor.DonationCount, &donor.TotalAmount); err != nil {
			return nil, err
		}
		donors = append(donors, donor)
	}
	return donors, rows.Err()
}

// ListPendingItems returns every pending donation and expense of one fund,
// oldest first, for manager review.
func (r *PostgresRepository) ListPendingItems(ctx context.Context, fundID uuid.UUID) (*domain.PendingItems, error) {
	items := &domain.PendingItems{
		Donations: []domain.Donation{},
		Expenses:  []domain.Expense{},
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE fund_id = $1 AND deleted_at IS NULL AND status = 'pending' ORDER BY created_at ASC`,
		fundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items.Donations = append(items.Donations, *donation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE fund_id = $1 AND deleted_at IS NULL AND status = 'pending' ORDER BY created_at ASC`,
		fundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items.Expenses = append(items.Expenses, *expense)
	}
	return items, rows.Err()
}
