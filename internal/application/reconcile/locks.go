package reconcile

import (
	"sort"
	"sync"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// keyedLocks hands out one mutex per key. Entries are reference counted and
// dropped once the last holder or waiter releases them, so the set only
// holds keys that are in use.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

// lock blocks until key is held and returns its release function.
func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			k.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}
}

// lockAll takes every key in sorted order and releases them in reverse.
// Callers that hold other keys must only ever acquire keys that sort after
// them in the same namespace order: statements before transactions.
func (k *keyedLocks) lockAll(keys []string) func() {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		unlocks = append(unlocks, k.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// size reports how many keys are held or waited on.
func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func statementKey(id string) string {
	return "statement/" + id
}

func transactionKey(txType ledger.TransactionType, id string) string {
	return "transaction/" + string(txType) + "/" + id
}
