package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Deposit, Withdrawal, Dispute, Resolve, Chargeback} {
		got, err := ParseKind(" " + k.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("Chargeback")
	require.NoError(t, err)
	assert.Equal(t, Chargeback, got)

	_, err = ParseKind("transfer")
	assert.ErrorContains(t, err, `unknown transaction type: "transfer"`)
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestKindIsPosting(t *testing.T) {
	assert.True(t, Deposit.IsPosting())
	assert.True(t, Withdrawal.IsPosting())
	assert.False(t, Dispute.IsPosting())
	assert.False(t, Resolve.IsPosting())
	assert.False(t, Chargeback.IsPosting())
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Kind Kind `json:"type"`
	}{Withdrawal})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"withdrawal"}`, string(data))

	var ev TransactionEvent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"resolve","client":2,"tx":9}`), &ev))
	assert.Equal(t, Resolve, ev.Kind)
	assert.Equal(t, uint16(2), ev.AccountID)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"refund"}`), &ev))
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "", want: "0.0000"},
		{in: "  ", want: "0.0000"},
		{in: "1", want: "1.0000"},
		{in: " 2.5 ", want: "2.5000"},
		{in: "1.23456", want: "1.2346"},
		{in: "1.23454", want: "1.2345"},
		{in: "-0.5", want: "-0.5000"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.StringFixed(Precision))
			assert.Equal(t, int32(-Precision), got.Exponent())
		})
	}

	_, err := ParseAmount("1,5")
	assert.ErrorContains(t, err, "invalid amount")
}

func TestTxHistoryPosted(t *testing.T) {
	var nilHistory *TxHistory
	_, ok := nilHistory.Posted()
	assert.False(t, ok)
	assert.Equal(t, 0, nilHistory.Len())

	h := &TxHistory{Stage: StagePosted, Events: []TransactionEvent{{Kind: Deposit, TxID: 1}}}
	posted, ok := h.Posted()
	require.True(t, ok)
	assert.Equal(t, uint32(1), posted.TxID)

	h = &TxHistory{Stage: StagePosted, Events: []TransactionEvent{{Kind: Dispute, TxID: 1}}}
	_, ok = h.Posted()
	assert.False(t, ok)
}

func TestNewAccountLedger(t *testing.T) {
	acct := NewAccountLedger(3)
	assert.Equal(t, "0.0000", acct.Total().StringFixed(Precision))
	assert.False(t, acct.Locked)
	assert.Empty(t, acct.History)

	b := acct.Balance()
	assert.Equal(t, uint16(3), b.AccountID)
	assert.True(t, b.Total.IsZero())
}

func TestStage(t *testing.T) {
	assert.False(t, StagePosted.Final())
	assert.False(t, StageDisputed.Final())
	assert.True(t, StageResolved.Final())
	assert.True(t, StageChargedBack.Final())
	assert.Equal(t, "charged_back", StageChargedBack.String())
}
