package memory

import (
	"sort"
	"sync"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// The map itself is guarded by a mutex; the ledgers it hands out are owned by
// whoever holds the account lock in the ledger service.
type MemoryLedgerStore struct {
	mu       sync.Mutex
	accounts map[uint16]*models.AccountLedger
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts: make(map[uint16]*models.AccountLedger),
	}
}

// GetOrCreate returns the account ledger, creating it with zero balances if absent.
func (m *MemoryLedgerStore) GetOrCreate(accountID uint16) *models.AccountLedger {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Return the existing ledger if the account was seen before
	acct, exists := m.accounts[accountID]
	if !exists {
		// First reference: open the account with zero balances, unlocked
		acct = models.NewAccountLedger(accountID)
		m.accounts[accountID] = acct
	}
	return acct
}

func (m *MemoryLedgerStore) Get(accountID uint16) (*models.AccountLedger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Lookup only; never creates the account
	acct, exists := m.accounts[accountID]
	return acct, exists
}

// Accounts returns every known ledger ordered by account id.
func (m *MemoryLedgerStore) Accounts() []*models.AccountLedger {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy the ledgers out so callers can range without holding the store lock
	result := make([]*models.AccountLedger, 0, len(m.accounts))
	for _, acct := range m.accounts {
		result = append(result, acct)
	}

	// Map iteration order is random; callers expect ascending account ids
	sort.Slice(result, func(i, j int) bool { return result[i].AccountID < result[j].AccountID })
	return result
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
