package agent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationLocksSerialize(t *testing.T) {
	locks := newConversationLocks()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("conv-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestConversationLocksCleanUpWhenIdle(t *testing.T) {
	locks := newConversationLocks()

	release := locks.acquire("conv-1")
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries)
}

func TestConversationLocksIndependentConversations(t *testing.T) {
	locks := newConversationLocks()

	releaseA := locks.acquire("conv-a")
	defer releaseA()

	// A second conversation must not block on the first.
	done := make(chan struct{})
	go func() {
		releaseB := locks.acquire("conv-b")
		releaseB()
		close(done)
	}()
	<-done
}
