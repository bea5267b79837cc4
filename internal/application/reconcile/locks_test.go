package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocks_ReleaseDropsEntry(t *testing.T) {
	locks := newKeyedLocks()

	unlock := locks.lock(statementKey("s1"))
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Zero(t, locks.size())

	// A second release is a no-op.
	unlock()
	assert.Zero(t, locks.size())
}

func TestKeyedLocks_EmptyStatementIDIsItsOwnKey(t *testing.T) {
	assert.NotEqual(t, statementKey(""), transactionKey("income", ""))
	assert.NotEqual(t, statementKey("income/x"), transactionKey("income", "x"))
}

func TestKeyedLocks_SameKeySerializes(t *testing.T) {
	locks := newKeyedLocks()
	unlock := locks.lock("k")

	acquired := make(chan struct{})
	go func() {
		release := locks.lock("k")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the key")
	}

	require.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestKeyedLocks_LockAllIsOrderIndependent(t *testing.T) {
	locks := newKeyedLocks()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locks.lockAll([]string{"a", "b", "c"})()
		}()
		go func() {
			defer wg.Done()
			locks.lockAll([]string{"c", "b", "a", "a"})()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lockAll deadlocked")
	}
	assert.Zero(t, locks.size())
}
