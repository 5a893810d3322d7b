package domain

import (
	"testing"
)

func TestBankAccountComplete(t *testing.T) {
	tests := []struct {
		name    string
		account BankAccount
		want    bool
	}{
		{
			name:    "all fields absent",
			account: BankAccount{},
			want:    false,
		},
		{
			name: "account number only",
			account: BankAccount{
				AccountNumber: ptrString("0011223344"),
			},
			want: false,
		},
		{
			name: "missing holder name",
			account: BankAccount{
				AccountNumber: ptrString("0011223344"),
				BankName:      ptrString("Vietcombank"),
			},
			want: false,
		},
		{
			name: "empty strings do not count",
			account: BankAccount{
				AccountNumber: ptrString(""),
				BankName:      ptrString("Vietcombank"),
				HolderName:    ptrString("Nguyen Van A"),
			},
			want: false,
		},
		{
			name: "complete without bank code",
			account: BankAccount{
				AccountNumber: ptrString("0011223344"),
				BankName:      ptrString("Vietcombank"),
				HolderName:    ptrString("Nguyen Van A"),
			},
			want: true,
		},
		{
			name: "complete with bank code",
			account: BankAccount{
				AccountNumber: ptrString("0011223344"),
				BankCode:      ptrString("970436"),
				BankName:      ptrString("Vietcombank"),
				HolderName:    ptrString("Nguyen Van A"),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.Complete(); got != tt.want {
				t.Fatalf("expected complete=%t, got %t", tt.want, got)
			}
		})
	}
}

func TestDonationFinalized(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{DonationStatusPending, false},
		{DonationStatusConfirmed, true},
		{DonationStatusRejected, true},
		{DonationStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			d := Donation{Status: tt.status}
			if got := d.Finalized(); got != tt.want {
				t.Fatalf("status %q: expected finalized=%t, got %t", tt.status, tt.want, got)
			}
		})
	}
}

func TestExpenseFinalized(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{ExpenseStatusPending, false},
		{ExpenseStatusApproved, true},
		{ExpenseStatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			e := Expense{Status: tt.status}
			if got := e.Finalized(); got != tt.want {
				t.Fatalf("status %q: expected finalized=%t, got %t", tt.status, tt.want, got)
			}
		})
	}
}

func ptrString(value string) *string {
	return &value
}
