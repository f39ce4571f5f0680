package ledger

import (
	"testing"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(kind models.Kind, client uint16, tx uint32, amount string) models.TransactionEvent {
	ev := models.TransactionEvent{Kind: kind, AccountID: client, TxID: tx, Amount: models.NormalizeAmount(decimal.Zero)}
	if amount != "" {
		ev.Amount = models.NormalizeAmount(decimal.RequireFromString(amount))
	}
	return ev
}

func deposit(client uint16, tx uint32, amount string) models.TransactionEvent {
	return event(models.Deposit, client, tx, amount)
}

func withdrawal(client uint16, tx uint32, amount string) models.TransactionEvent {
	return event(models.Withdrawal, client, tx, amount)
}

func dispute(client uint16, tx uint32) models.TransactionEvent {
	return event(models.Dispute, client, tx, "")
}

func resolve(client uint16, tx uint32) models.TransactionEvent {
	return event(models.Resolve, client, tx, "")
}

func chargeback(client uint16, tx uint32) models.TransactionEvent {
	return event(models.Chargeback, client, tx, "")
}

func assertBalances(t *testing.T, acct *models.AccountLedger, available, held string, locked bool) {
	t.Helper()
	assert.Equal(t, available, acct.Available.StringFixed(4), "available")
	assert.Equal(t, held, acct.Held.StringFixed(4), "held")
	assert.Equal(t, locked, acct.Locked, "locked")
	assert.True(t, acct.Total().Equal(acct.Available.Add(acct.Held)), "total")
}

func TestApplyScenarios(t *testing.T) {
	testCases := []struct {
		name          string
		client        uint16
		events        []models.TransactionEvent
		wantErrs      []error
		wantAvailable string
		wantHeld      string
		wantLocked    bool
	}{
		{
			name:          "deposit then withdrawal",
			client:        1,
			events:        []models.TransactionEvent{deposit(1, 1, "5.0"), withdrawal(1, 2, "3.0")},
			wantErrs:      []error{nil, nil},
			wantAvailable: "2.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "withdrawal with insufficient funds",
			client:        2,
			events:        []models.TransactionEvent{deposit(2, 1, "5.0"), withdrawal(2, 2, "9.0")},
			wantErrs:      []error{nil, ErrInsufficientFunds},
			wantAvailable: "5.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "dispute then resolve",
			client:        3,
			events:        []models.TransactionEvent{deposit(3, 1, "10.0"), dispute(3, 1), resolve(3, 1)},
			wantErrs:      []error{nil, nil, nil},
			wantAvailable: "10.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "dispute then chargeback",
			client:        4,
			events:        []models.TransactionEvent{deposit(4, 1, "10.0"), dispute(4, 1), chargeback(4, 1)},
			wantErrs:      []error{nil, nil, nil},
			wantAvailable: "0.0000",
			wantHeld:      "0.0000",
			wantLocked:    true,
		},
		{
			name:          "dispute of a withdrawal holds the amount",
			client:        5,
			events:        []models.TransactionEvent{deposit(5, 1, "20.0"), withdrawal(5, 2, "5.0"), dispute(5, 2)},
			wantErrs:      []error{nil, nil, nil},
			wantAvailable: "15.0000",
			wantHeld:      "5.0000",
		},
		{
			name:          "reused deposit id",
			client:        6,
			events:        []models.TransactionEvent{deposit(6, 1, "5.0"), deposit(6, 1, "3.0")},
			wantErrs:      []error{nil, ErrDuplicateTransaction},
			wantAvailable: "5.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "withdrawal reusing a deposit id",
			client:        7,
			events:        []models.TransactionEvent{deposit(7, 1, "5.0"), withdrawal(7, 1, "1.0")},
			wantErrs:      []error{nil, ErrDuplicateTransaction},
			wantAvailable: "5.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "dispute of an unknown transaction",
			client:        8,
			events:        []models.TransactionEvent{deposit(8, 1, "5.0"), dispute(8, 99)},
			wantErrs:      []error{nil, ErrUnknownTransaction},
			wantAvailable: "5.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "second dispute",
			client:        9,
			events:        []models.TransactionEvent{deposit(9, 1, "5.0"), dispute(9, 1), dispute(9, 1)},
			wantErrs:      []error{nil, nil, ErrAlreadyDisputed},
			wantAvailable: "0.0000",
			wantHeld:      "5.0000",
		},
		{
			name:          "resolve without dispute",
			client:        10,
			events:        []models.TransactionEvent{deposit(10, 1, "5.0"), resolve(10, 1), chargeback(10, 1)},
			wantErrs:      []error{nil, ErrNotDisputed, ErrNotDisputed},
			wantAvailable: "5.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "dispute after resolve",
			client:        11,
			events:        []models.TransactionEvent{deposit(11, 1, "5.0"), dispute(11, 1), resolve(11, 1), dispute(11, 1), resolve(11, 1)},
			wantErrs:      []error{nil, nil, nil, ErrTransactionFinalized, ErrTransactionFinalized},
			wantAvailable: "5.0000",
			wantHeld:      "0.0000",
		},
		{
			name:          "resolve of unknown transaction",
			client:        12,
			events:        []models.TransactionEvent{resolve(12, 1), chargeback(12, 1)},
			wantErrs:      []error{ErrUnknownTransaction, ErrUnknownTransaction},
			wantAvailable: "0.0000",
			wantHeld:      "0.0000",
		},
		{
			name:   "locked account accepts deposits only",
			client: 13,
			events: []models.TransactionEvent{
				deposit(13, 1, "10.0"), deposit(13, 2, "4.0"), dispute(13, 1), chargeback(13, 1),
				deposit(13, 3, "2.5"), withdrawal(13, 4, "1.0"), dispute(13, 2), resolve(13, 1), chargeback(13, 2),
			},
			wantErrs:      []error{nil, nil, nil, nil, nil, ErrAccountLocked, ErrAccountLocked, ErrAccountLocked, ErrAccountLocked},
			wantAvailable: "6.5000",
			wantHeld:      "0.0000",
			wantLocked:    true,
		},
		{
			name:          "withdrawal of the exact available amount",
			client:        14,
			events:        []models.TransactionEvent{deposit(14, 1, "1.2345"), withdrawal(14, 2, "1.2345")},
			wantErrs:      []error{nil, nil},
			wantAvailable: "0.0000",
			wantHeld:      "0.0000",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Len(t, tc.wantErrs, len(tc.events))
			acct := models.NewAccountLedger(tc.client)
			for i, ev := range tc.events {
				err := Apply(acct, ev)
				if tc.wantErrs[i] == nil {
					assert.NoError(t, err, "event %d (%s)", i, ev.Kind)
				} else {
					assert.ErrorIs(t, err, tc.wantErrs[i], "event %d (%s)", i, ev.Kind)
				}
				assert.True(t, acct.Total().Equal(acct.Available.Add(acct.Held)))
			}
			assertBalances(t, acct, tc.wantAvailable, tc.wantHeld, tc.wantLocked)
		})
	}
}

func TestInsufficientWithdrawalIsRecorded(t *testing.T) {
	acct := models.NewAccountLedger(2)
	require.NoError(t, Apply(acct, deposit(2, 1, "5.0")))
	require.ErrorIs(t, Apply(acct, withdrawal(2, 2, "9.0")), ErrInsufficientFunds)

	h := acct.History[2]
	require.NotNil(t, h)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, models.StagePosted, h.Stage)

	// The failed withdrawal is still a dispute target; the held amount was
	// never debited from available.
	require.NoError(t, Apply(acct, dispute(2, 2)))
	assertBalances(t, acct, "5.0000", "9.0000", false)

	require.NoError(t, Apply(acct, resolve(2, 2)))
	assertBalances(t, acct, "14.0000", "0.0000", false)
}

func TestNegativeBalancesAreNotClamped(t *testing.T) {
	acct := models.NewAccountLedger(1)
	require.NoError(t, Apply(acct, deposit(1, 1, "10.0")))
	require.NoError(t, Apply(acct, withdrawal(1, 2, "10.0")))
	require.NoError(t, Apply(acct, dispute(1, 1)))
	assertBalances(t, acct, "-10.0000", "10.0000", false)

	require.NoError(t, Apply(acct, chargeback(1, 1)))
	assertBalances(t, acct, "-10.0000", "0.0000", true)
}

func TestDisputeResolveRestoresBalances(t *testing.T) {
	acct := models.NewAccountLedger(1)
	require.NoError(t, Apply(acct, deposit(1, 1, "100.0")))
	require.NoError(t, Apply(acct, deposit(1, 3, "2.7182")))

	available, held := acct.Available, acct.Held
	require.NoError(t, Apply(acct, dispute(1, 3)))
	require.NoError(t, Apply(acct, resolve(1, 3)))

	assert.True(t, available.Equal(acct.Available), "available %s != %s", available, acct.Available)
	assert.True(t, held.Equal(acct.Held), "held %s != %s", held, acct.Held)
}

func TestResolvedWithdrawalCreditsAvailable(t *testing.T) {
	acct := models.NewAccountLedger(1)
	require.NoError(t, Apply(acct, deposit(1, 1, "100.0")))
	require.NoError(t, Apply(acct, withdrawal(1, 3, "2.7182")))
	require.NoError(t, Apply(acct, dispute(1, 3)))
	assertBalances(t, acct, "97.2818", "2.7182", false)

	// Resolve moves the held amount back to available whatever the posting was.
	require.NoError(t, Apply(acct, resolve(1, 3)))
	assertBalances(t, acct, "100.0000", "0.0000", false)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	acct := models.NewAccountLedger(1)
	steps := []struct {
		ev    models.TransactionEvent
		stage models.Stage
	}{
		{deposit(1, 1, "3.0"), models.StagePosted},
		{dispute(1, 1), models.StageDisputed},
		{chargeback(1, 1), models.StageChargedBack},
	}
	for i, step := range steps {
		require.NoError(t, Apply(acct, step.ev))
		h := acct.History[1]
		assert.Equal(t, i+1, h.Len())
		assert.Equal(t, step.stage, h.Stage)
		assert.Equal(t, step.ev, h.Events[i])
	}

	// Rejected events leave the trail untouched.
	assert.Error(t, Apply(acct, resolve(1, 1)))
	assert.Equal(t, 3, acct.History[1].Len())
	assert.True(t, acct.History[1].Stage.Final())
}

func TestInconsistentHistoryIsDropped(t *testing.T) {
	testCases := []struct {
		name    string
		history *models.TxHistory
		ev      models.TransactionEvent
	}{
		{
			name:    "posted stage without a posting",
			history: &models.TxHistory{Stage: models.StagePosted, Events: []models.TransactionEvent{dispute(1, 1)}},
			ev:      dispute(1, 1),
		},
		{
			name:    "disputed stage without a posting",
			history: &models.TxHistory{Stage: models.StageDisputed, Events: []models.TransactionEvent{dispute(1, 1), dispute(1, 1)}},
			ev:      resolve(1, 1),
		},
		{
			name:    "stage and trail disagree",
			history: &models.TxHistory{Stage: models.StageDisputed, Events: []models.TransactionEvent{deposit(1, 1, "1.0")}},
			ev:      chargeback(1, 1),
		},
		{
			name:    "deposit over a broken trail",
			history: &models.TxHistory{Stage: models.StageEmpty, Events: []models.TransactionEvent{deposit(1, 1, "1.0")}},
			ev:      deposit(1, 1, "1.0"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			acct := models.NewAccountLedger(1)
			acct.History[1] = tc.history
			before := len(tc.history.Events)

			err := Apply(acct, tc.ev)
			assert.ErrorIs(t, err, ErrInconsistentHistory)
			assert.True(t, IsInternal(err))
			assertBalances(t, acct, "0.0000", "0.0000", false)
			assert.Len(t, tc.history.Events, before)
		})
	}
}

func TestUnknownKind(t *testing.T) {
	acct := models.NewAccountLedger(1)
	err := Apply(acct, models.TransactionEvent{Kind: models.Kind(42), AccountID: 1, TxID: 1})
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.True(t, IsInternal(err))
	assert.Empty(t, acct.History)
}

func TestAmountsKeepFourDecimals(t *testing.T) {
	acct := models.NewAccountLedger(1)
	require.NoError(t, Apply(acct, deposit(1, 1, "1.00005")))
	require.NoError(t, Apply(acct, deposit(1, 2, "0.1")))
	require.NoError(t, Apply(acct, withdrawal(1, 3, "0.0001")))

	assert.Equal(t, "1.1000", acct.Available.StringFixed(4))
	assert.Equal(t, "1.1", acct.Available.String())
}
