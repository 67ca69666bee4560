package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishDeliversToEverySubscriberOnce(t *testing.T) {
	ch := NewOnce[[]int]()
	var a, b atomic.Int32
	ch.Subscribe(func(v []int) { a.Add(int32(len(v))) })
	ch.Subscribe(func(v []int) { b.Add(1) })

	require.NoError(t, ch.Publish([]int{1, 2}))
	assert.ErrorIs(t, ch.Publish([]int{3}), ErrAlreadyPublished)

	assert.Equal(t, int32(2), a.Load())
	assert.Equal(t, int32(1), b.Load())

	v, ok := ch.Value()
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)
}

func TestLateSubscriberReceivesValue(t *testing.T) {
	ch := NewOnce[string]()
	require.NoError(t, ch.Publish("pronto"))

	var got string
	ch.Subscribe(func(v string) { got = v })
	assert.Equal(t, "pronto", got)
}

func TestConcurrentPublishSucceedsOnce(t *testing.T) {
	ch := NewOnce[int]()
	var delivered atomic.Int32
	ch.Subscribe(func(int) { delivered.Add(1) })

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if ch.Publish(i) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	<-ch.Done()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(1), delivered.Load())
}

func TestValueBeforePublish(t *testing.T) {
	ch := NewOnce[int]()
	_, ok := ch.Value()
	assert.False(t, ok)
	select {
	case <-ch.Done():
		t.Fatal("Done closed before publish")
	default:
	}
}
