package app

import (
	"context"
	"sync"
	"time"

	"github.com/famtree/ledger-service/internal/domain"
	"github.com/famtree/ledger-service/internal/store"
	"github.com/google/uuid"
)

// fakeRepository is an in-memory store.Repository used by the service tests.
// A single mutex plays the role of the database's row locks, so the atomicity
// contract of confirm/approve holds under concurrent use.
type fakeRepository struct {
	mu        sync.Mutex
	funds     map[uuid.UUID]*domain.Fund
	donations map[uuid.UUID]*domain.Donation
	expenses  map[uuid.UUID]*domain.Expense
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		funds:     make(map[uuid.UUID]*domain.Fund),
		donations: make(map[uuid.UUID]*domain.Donation),
		expenses:  make(map[uuid.UUID]*domain.Expense),
	}
}

func (f *fakeRepository) CreateFund(ctx context.Context, fund *domain.Fund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *fund
	copied.CreatedAt = time.Now().UTC()
	copied.UpdatedAt = copied.CreatedAt
	f.funds[fund.ID] = &copied
	return nil
}

func (f *fakeRepository) GetFundByID(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fund, ok := f.funds[fundID]
	if !ok || fund.DeletedAt != nil {
		return nil, store.ErrFundNotFound
	}
	copied := *fund
	return &copied, nil
}

func (f *fakeRepository) ListFunds(ctx context.Context, kind string, opts domain.ListOptions) ([]domain.Fund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Fund
	for _, fund := range f.funds {
		if fund.DeletedAt != nil {
			continue
		}
		if kind != "" && fund.Kind != kind {
			continue
		}
		out = append(out, *fund)
	}
	return out, nil
}

func (f *fakeRepository) UpdateFund(ctx context.Context, fundID uuid.UUID, req domain.UpdateFundRequest) (*domain.Fund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fund, ok := f.funds[fundID]
	if !ok || fund.DeletedAt != nil {
		return nil, store.ErrFundNotFound
	}
	if req.Name != nil {
		fund.Name = *req.Name
	}
	if req.Note != nil {
		fund.Note = *req.Note
	}
	if req.BankAccount != nil {
		fund.BankAccount = *req.BankAccount
	}
	if req.ManagerIDs != nil {
		fund.ManagerIDs = req.ManagerIDs
	}
	fund.UpdatedAt = time.Now().UTC()
	copied := *fund
	return &copied, nil
}

func (f *fakeRepository) SoftDeleteFund(ctx context.Context, fundID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fund, ok := f.funds[fundID]
	if !ok || fund.DeletedAt != nil {
		return store.ErrFundNotFound
	}
	now := time.Now().UTC()
	fund.DeletedAt = &now
	for _, d := range f.donations {
		if d.FundID == fundID && d.DeletedAt == nil {
			d.DeletedAt = &now
		}
	}
	for _, e := range f.expenses {
		if e.FundID == fundID && e.DeletedAt == nil {
			e.DeletedAt = &now
		}
	}
	return nil
}

func (f *fakeRepository) CreateDonation(ctx context.Context, donation *domain.Donation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if donation.OrderCode != nil {
		for _, d := range f.donations {
			if d.OrderCode != nil && *d.OrderCode == *donation.OrderCode {
				return store.ErrDuplicateOrderCode
			}
		}
	}
	copied := *donation
	copied.CreatedAt = time.Now().UTC()
	copied.UpdatedAt = copied.CreatedAt
	f.donations[donation.ID] = &copied
	return nil
}

func (f *fakeRepository) GetDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[donationID]
	if !ok || d.DeletedAt != nil {
		return nil, store.ErrDonationNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeRepository) GetDonationByOrderCode(ctx context.Context, orderCode string) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.donations {
		if d.OrderCode != nil && *d.OrderCode == orderCode && d.DeletedAt == nil {
			copied := *d
			return &copied, nil
		}
	}
	return nil, store.ErrDonationNotFound
}

func (f *fakeRepository) ListDonationsByFund(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Donation
	for _, d := range f.donations {
		if d.FundID == fundID && d.DeletedAt == nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateDonation(ctx context.Context, donationID uuid.UUID, req domain.UpdateDonationRequest) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[donationID]
	if !ok || d.DeletedAt != nil {
		return nil, store.ErrDonationNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return nil, store.ErrDonationFinalized
	}
	if req.Amount != nil {
		d.Amount = *req.Amount
	}
	if req.Notes != nil {
		d.Notes = *req.Notes
	}
	d.UpdatedAt = time.Now().UTC()
	copied := *d
	return &copied, nil
}

func (f *fakeRepository) SoftDeleteDonation(ctx context.Context, donationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[donationID]
	if !ok || d.DeletedAt != nil {
		return store.ErrDonationNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return store.ErrDonationFinalized
	}
	now := time.Now().UTC()
	d.DeletedAt = &now
	return nil
}

func (f *fakeRepository) ConfirmDonation(ctx context.Context, donationID uuid.UUID, params store.ConfirmDonationParams) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[donationID]
	if !ok || d.DeletedAt != nil {
		return nil, store.ErrDonationNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return nil, store.ErrDonationFinalized
	}
	fund, ok := f.funds[d.FundID]
	if !ok || fund.DeletedAt != nil {
		return nil, store.ErrFundNotFound
	}
	d.Status = domain.DonationStatusConfirmed
	confirmer := params.ConfirmerID
	d.ConfirmedBy = &confirmer
	confirmedAt := params.ConfirmedAt
	d.ConfirmedAt = &confirmedAt
	if params.Notes != "" {
		notes := params.Notes
		d.ConfirmationNotes = &notes
	}
	if params.GatewayTransactionID != nil {
		d.GatewayTransactionID = params.GatewayTransactionID
	}
	d.UpdatedAt = time.Now().UTC()
	fund.CurrentBalance += d.Amount
	copied := *d
	return &copied, nil
}

func (f *fakeRepository) RejectDonation(ctx context.Context, donationID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[donationID]
	if !ok || d.DeletedAt != nil {
		return nil, store.ErrDonationNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return nil, store.ErrDonationFinalized
	}
	d.Status = domain.DonationStatusRejected
	d.ConfirmedBy = &rejecterID
	d.ConfirmationNotes = &reason
	d.UpdatedAt = time.Now().UTC()
	copied := *d
	return &copied, nil
}

func (f *fakeRepository) FailDonation(ctx context.Context, donationID uuid.UUID, gatewayTransactionID *string) (*domain.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[donationID]
	if !ok || d.DeletedAt != nil {
		return nil, store.ErrDonationNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return nil, store.ErrDonationFinalized
	}
	d.Status = domain.DonationStatusFailed
	if gatewayTransactionID != nil {
		d.GatewayTransactionID = gatewayTransactionID
	}
	d.UpdatedAt = time.Now().UTC()
	copied := *d
	return &copied, nil
}

func (f *fakeRepository) CreateExpense(ctx context.Context, expense *domain.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *expense
	copied.CreatedAt = time.Now().UTC()
	copied.UpdatedAt = copied.CreatedAt
	f.expenses[expense.ID] = &copied
	return nil
}

func (f *fakeRepository) GetExpenseByID(ctx context.Context, expenseID uuid.UUID) (*domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[expenseID]
	if !ok || e.DeletedAt != nil {
		return nil, store.ErrExpenseNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeRepository) ListExpensesByFund(ctx context.Context, fundID uuid.UUID, opts domain.ListOptions) ([]domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Expense
	for _, e := range f.expenses {
		if e.FundID == fundID && e.DeletedAt == nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateExpense(ctx context.Context, expenseID uuid.UUID, req domain.UpdateExpenseRequest) (*domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[expenseID]
	if !ok || e.DeletedAt != nil {
		return nil, store.ErrExpenseNotFound
	}
	if e.Status != domain.ExpenseStatusPending {
		return nil, store.ErrExpenseFinalized
	}
	if req.Amount != nil {
		e.Amount = *req.Amount
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Recipient != nil {
		e.Recipient = *req.Recipient
	}
	if req.PlannedDate != nil {
		e.PlannedDate = req.PlannedDate
	}
	if req.ReceiptURLs != nil {
		e.ReceiptURLs = req.ReceiptURLs
	}
	e.UpdatedAt = time.Now().UTC()
	copied := *e
	return &copied, nil
}

func (f *fakeRepository) SoftDeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[expenseID]
	if !ok || e.DeletedAt != nil {
		return store.ErrExpenseNotFound
	}
	if e.Status != domain.ExpenseStatusPending {
		return store.ErrExpenseFinalized
	}
	now := time.Now().UTC()
	e.DeletedAt = &now
	return nil
}

func (f *fakeRepository) ApproveExpense(ctx context.Context, expenseID uuid.UUID, params store.ApproveExpenseParams) (*domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[expenseID]
	if !ok || e.DeletedAt != nil {
		return nil, store.ErrExpenseNotFound
	}
	if e.Status != domain.ExpenseStatusPending {
		return nil, store.ErrExpenseFinalized
	}
	fund, ok := f.funds[e.FundID]
	if !ok || fund.DeletedAt != nil {
		return nil, store.ErrFundNotFound
	}
	if fund.CurrentBalance < e.Amount {
		return nil, store.ErrInsufficientFunds
	}
	e.Status = domain.ExpenseStatusApproved
	approver := params.ApproverID
	e.ApprovedBy = &approver
	approvedAt := params.ApprovedAt
	e.ApprovedAt = &approvedAt
	if params.Notes != "" {
		notes := params.Notes
		e.ApprovalNotes = &notes
	}
	proof := params.PaymentProofURL
	e.PaymentProofURL = &proof
	e.UpdatedAt = time.Now().UTC()
	fund.CurrentBalance -= e.Amount
	copied := *e
	return &copied, nil
}

func (f *fakeRepository) RejectExpense(ctx context.Context, expenseID uuid.UUID, rejecterID uuid.UUID, reason string) (*domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[expenseID]
	if !ok || e.DeletedAt != nil {
		return nil, store.ErrExpenseNotFound
	}
	if e.Status != domain.ExpenseStatusPending {
		return nil, store.ErrExpenseFinalized
	}
	e.Status = domain.ExpenseStatusRejected
	e.ApprovedBy = &rejecterID
	e.ApprovalNotes = &reason
	e.UpdatedAt = time.Now().UTC()
	copied := *e
	return &copied, nil
}

func (f *fakeRepository) GetFundStats(ctx context.Context, fundID uuid.UUID) (*domain.FundStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fund, ok := f.funds[fundID]
	if !ok || fund.DeletedAt != nil {
		return nil, store.ErrFundNotFound
	}
	stats := &domain.FundStats{FundID: fundID, CurrentBalance: fund.CurrentBalance}
	donationAgg := make(map[string]*domain.StatusCount)
	var confirmedCount, confirmedTotal int64
	for _, d := range f.donations {
		if d.FundID != fundID || d.DeletedAt != nil {
			continue
		}
		sc, ok := donationAgg[d.Status]
		if !ok {
			sc = &domain.StatusCount{Status: d.Status}
			donationAgg[d.Status] = sc
		}
		sc.Count++
		sc.Total += d.Amount
		if d.Status == domain.DonationStatusConfirmed {
			confirmedCount++
			confirmedTotal += d.Amount
		}
	}
	for _, sc := range donationAgg {
		stats.Donations = append(stats.Donations, *sc)
	}
	expenseAgg := make(map[string]*domain.StatusCount)
	for _, e := range f.expenses {
		if e.FundID != fundID || e.DeletedAt != nil {
			continue
		}
		sc, ok := expenseAgg[e.Status]
		if !ok {
			sc = &domain.StatusCount{Status: e.Status}
			expenseAgg[e.Status] = sc
		}
		sc.Count++
		sc.Total += e.Amount
	}
	for _, sc := range expenseAgg {
		stats.Expenses = append(stats.Expenses, *sc)
	}
	if confirmedCount > 0 {
		stats.AverageConfirmedAmount = confirmedTotal / confirmedCount
	}
	return stats, nil
}

func (f *fakeRepository) ListTopDonors(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.TopDonor, error) {
	return nil, nil
}

func (f *fakeRepository) ListPendingItems(ctx context.Context, fundID uuid.UUID) (*domain.PendingItems, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := &domain.PendingItems{}
	for _, d := range f.donations {
		if d.FundID == fundID && d.DeletedAt == nil && d.Status == domain.DonationStatusPending {
			items.Donations = append(items.Donations, *d)
		}
	}
	for _, e := range f.expenses {
		if e.FundID == fundID && e.DeletedAt == nil && e.Status == domain.ExpenseStatusPending {
			items.Expenses = append(items.Expenses, *e)
		}
	}
	return items, nil
}

func (f *fakeRepository) fundBalance(fundID uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	fund, ok := f.funds[fundID]
	if !ok {
		return 0
	}
	return fund.CurrentBalance
}

func (f *fakeRepository) donationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.donations)
}
