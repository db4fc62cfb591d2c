package sync

import (
	"sort"
	stdsync "sync"

	"mico/internal/core"
)

// Cache is the client-side transaction list: server data plus whatever
// optimistic edits have been applied since the last refresh. Ordering
// mirrors the server, date descending with id as tiebreak.
type Cache struct {
	mu         stdsync.Mutex
	txns       []core.Transaction
	grandTotal int64
	stale      bool
}

func NewCache() *Cache {
	return &Cache{stale: true}
}

// Replace installs a fresh authoritative listing and clears the stale flag.
func (c *Cache) Replace(txns []core.Transaction, grandTotal int64) {
	cp := make([]core.Transaction, len(txns))
	copy(cp, txns)
	sortTransactions(cp)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.txns = cp
	c.grandTotal = grandTotal
	c.stale = false
}

// List returns a copy of the cached transactions and the grand total.
func (c *Cache) List() ([]core.Transaction, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Transaction, len(c.txns))
	copy(out, c.txns)
	return out, c.grandTotal
}

func (c *Cache) Get(id string) (core.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.txns {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// apply writes one field update into the cached record and returns a copy
// of the record as it was before the edit, for a later restore. The grand
// total tracks amount edits so the listing stays consistent without a
// refetch. Snapshotting only the edited record keeps rollback from
// clobbering edits that landed on other records in the meantime.
func (c *Cache) apply(id string, u core.FieldUpdate) (core.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.txns {
		if c.txns[i].ID != id {
			continue
		}
		snap := c.txns[i]
		u.Apply(&c.txns[i])
		c.grandTotal += c.txns[i].Amount.Cents - snap.Amount.Cents
		sortTransactions(c.txns)
		return snap, true
	}
	return core.Transaction{}, false
}

// restore puts a pre-edit record copy back and readjusts the grand total.
// A record that vanished meanwhile (a refresh replaced the listing) stays
// gone; the server's data is authoritative.
func (c *Cache) restore(snap core.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.txns {
		if c.txns[i].ID != snap.ID {
			continue
		}
		c.grandTotal += snap.Amount.Cents - c.txns[i].Amount.Cents
		c.txns[i] = snap
		sortTransactions(c.txns)
		return
	}
}

// MarkStale flags the cache for refetch without discarding current data.
// Readers keep the optimistic view until a refresh lands.
func (c *Cache) MarkStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

func (c *Cache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

func sortTransactions(txns []core.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}
