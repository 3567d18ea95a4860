package models

import (
	"testing"

	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaveBalanceDebitCredit(t *testing.T) {
	tests := []struct {
		name      string
		debit     bool
		leaveType string
		days      int
		wantErr   error
		want      LeaveEntry
	}{
		{name: "debit", debit: true, leaveType: "annual", days: 3, want: LeaveEntry{Allocated: 10, Used: 7, Remaining: 3}},
		{name: "debit whole remainder", debit: true, leaveType: "annual", days: 6, want: LeaveEntry{Allocated: 10, Used: 10, Remaining: 0}},
		{name: "debit over remainder", debit: true, leaveType: "annual", days: 7, wantErr: e.ErrInsufficientBalance},
		{name: "debit zero days", debit: true, leaveType: "annual", days: 0, wantErr: e.ErrInvalidRange},
		{name: "debit unknown type", debit: true, leaveType: "sabbatical", days: 1, wantErr: e.ErrInvalidInput},
		{name: "credit", leaveType: "annual", days: 2, want: LeaveEntry{Allocated: 10, Used: 2, Remaining: 8}},
		{name: "credit all used", leaveType: "annual", days: 4, want: LeaveEntry{Allocated: 10, Used: 0, Remaining: 10}},
		{name: "credit more than used", leaveType: "annual", days: 5, wantErr: e.ErrInvalidInput},
		{name: "credit zero days", leaveType: "annual", days: 0, wantErr: e.ErrInvalidInput},
		{name: "credit unknown type", leaveType: "sabbatical", days: 1, wantErr: e.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := LeaveEntry{Allocated: 10, Used: 4, Remaining: 6}
			balance := LeaveBalance{"annual": start}

			var err error
			if tt.debit {
				err = balance.Debit(tt.leaveType, tt.days)
			} else {
				err = balance.Credit(tt.leaveType, tt.days)
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, LeaveBalance{"annual": start}, balance)
				return
			}
			require.NoError(t, err)
			got := balance[tt.leaveType]
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Allocated, got.Used+got.Remaining)
		})
	}
}

func TestLeaveStatusValid(t *testing.T) {
	tests := []struct {
		status LeaveStatus
		want   bool
	}{
		{StatusPending, true},
		{StatusApproved, true},
		{StatusRejected, true},
		{"", false},
		{"pending", false},
		{"Cancelled", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.Valid(), "status %q", tt.status)
	}
}
