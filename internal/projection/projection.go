// Package projection renders the final account balances.
package projection

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

var header = []string{"client", "available", "held", "total", "locked"}

func sorted(balances []models.AccountBalance) []models.AccountBalance {
	out := slices.Clone(balances)
	slices.SortFunc(out, func(a, b models.AccountBalance) int {
		return int(a.AccountID) - int(b.AccountID)
	})
	return out
}

// WriteCSV writes one row per account, ordered by client id, with amounts
// carrying exactly four fractional digits.
func WriteCSV(w io.Writer, balances []models.AccountBalance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, b := range sorted(balances) {
		row := []string{
			strconv.FormatUint(uint64(b.AccountID), 10),
			b.Available.StringFixed(models.Precision),
			b.Held.StringFixed(models.Precision),
			b.Total.StringFixed(models.Precision),
			strconv.FormatBool(b.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("could not write balances: %w", err)
	}
	return nil
}

// Balance is the wire form of one account balance.
type Balance struct {
	AccountID uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// ToJSON converts balances to their wire form, ordered by client id.
func ToJSON(balances []models.AccountBalance) []Balance {
	out := make([]Balance, 0, len(balances))
	for _, b := range sorted(balances) {
		out = append(out, BalanceJSON(b))
	}
	return out
}

// BalanceJSON converts one balance to its wire form.
func BalanceJSON(b models.AccountBalance) Balance {
	return Balance{
		AccountID: b.AccountID,
		Available: b.Available.StringFixed(models.Precision),
		Held:      b.Held.StringFixed(models.Precision),
		Total:     b.Total.StringFixed(models.Precision),
		Locked:    b.Locked,
	}
}

// WriteJSON writes the balances as a JSON array.
func WriteJSON(w io.Writer, balances []models.AccountBalance) error {
	return json.NewEncoder(w).Encode(ToJSON(balances))
}
