//nolint:whitespace // ok for tests
package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastServer_FanOut(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("session-1", "test", source)
	defer b.Close()

	subs := []<-chan int{b.Subscribe(), b.Subscribe()}
	results := make([][]int, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range sub {
				results[i] = append(results[i], v)
			}
		}()
	}

	source <- 1
	source <- 2
	source <- 3
	close(source)
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, results[0])
	assert.Equal(t, []int{1, 2, 3}, results[1])
}

func TestBroadcastServer_CancelSubscription(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("session-1", "test", source)
	defer b.Close()

	gone := b.Subscribe()
	stays := b.Subscribe()
	b.CancelSubscription(gone)

	_, open := <-gone
	assert.False(t, open, "cancelled subscription must be closed")

	go func() { source <- 42; close(source) }()
	v, open := <-stays
	assert.True(t, open)
	assert.Equal(t, 42, v)
}

func TestBroadcastServer_SourceCloseEndsSubscribers(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("session-1", "test", source)
	defer b.Close()

	sub := b.Subscribe()
	close(source)

	_, open := <-sub
	assert.False(t, open)
}

func TestBroadcastServer_DeadSubscriberDoesNotStallOthers(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("session-1", "test", source)
	defer b.Close()

	_ = b.Subscribe() // never read from
	live := b.Subscribe()

	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := range live {
			got = append(got, v)
		}
	}()

	source <- 1
	source <- 2
	source <- 3
	close(source)
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, got)
}
