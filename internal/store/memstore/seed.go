package memstore

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

// AddAccount seeds a user account with the given balance and returns its id.
func (s *Store) AddAccount(balance decimal.Decimal) uuid.UUID {
	return s.addAccount(models.RoleUser, balance)
}

// AddAdmin seeds an admin account with a zero balance.
func (s *Store) AddAdmin() uuid.UUID {
	return s.addAccount(models.RoleAdmin, decimal.Zero)
}

func (s *Store) addAccount(role string, balance decimal.Decimal) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	t := now()
	s.accounts[id] = &models.Account{
		ID:        id,
		Email:     id.String() + "@example.test",
		Role:      role,
		Balance:   balance,
		CreatedAt: t,
		UpdatedAt: t,
	}
	return id
}

// AddListing seeds an active listing owned by owner.
func (s *Store) AddListing(owner uuid.UUID, title string) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[id] = &models.Listing{ID: id, OwnerID: owner, Title: title, Status: models.ListingStatusActive}
	return id
}

// AddVoucher seeds a voucher row directly.
func (s *Store) AddVoucher(v models.Voucher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now()
	}
	s.vouchers[v.ID] = &v
	s.codes[v.Code] = v.ID
}

// Balance returns an account's current balance, or zero if unknown.
func (s *Store) Balance(id uuid.UUID) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return a.Balance
	}
	return decimal.Zero
}

// TotalBalance sums every account balance.
func (s *Store) TotalBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, a := range s.accounts {
		total = total.Add(a.Balance)
	}
	return total
}

// ListingStatus returns a listing's status, or "" if unknown.
func (s *Store) ListingStatus(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.listings[id]; ok {
		return l.Status
	}
	return ""
}

// Entries returns every ledger entry in insertion order.
func (s *Store) Entries() []models.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LedgerEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Trade returns the completed trade recorded for an offer.
func (s *Store) Trade(offerID uuid.UUID) (models.CompletedTrade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[offerID]
	if !ok {
		return models.CompletedTrade{}, false
	}
	return *t, true
}

// Activity returns every recorded activity row.
func (s *Store) Activity() []models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Activity, len(s.activity))
	for i, a := range s.activity {
		out[i] = *a
	}
	return out
}
