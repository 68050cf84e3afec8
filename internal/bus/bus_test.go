package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drain[T any](sub *Subscription[T]) []T {
	var out []T
	for {
		v, ok := sub.TryNext()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestBusTopicOrdering(t *testing.T) {
	b := New[string]()
	c := b.Subscribe("C")
	other := b.Subscribe("D")
	all := b.Subscribe(All)

	b.Publish("C", "m1")
	b.Publish("D", "x1")
	b.Publish("C", "m2")
	b.Publish("C", "m3")

	require.Equal(t, []string{"m1", "m2", "m3"}, drain(c))
	require.Equal(t, []string{"x1"}, drain(other))
	require.Equal(t, []string{"m1", "x1", "m2", "m3"}, drain(all))
}

func TestBusPublishToAllOnce(t *testing.T) {
	b := New[int]()
	all := b.Subscribe(All)
	require.Equal(t, 1, b.Publish(All, 1))
	require.Equal(t, []int{1}, drain(all))
}

func TestBusNoReplay(t *testing.T) {
	b := New[int]()
	b.Publish("C", 1)
	sub := b.Subscribe("C")
	b.Publish("C", 2)
	require.Equal(t, []int{2}, drain(sub))
}

func TestBusDetachDoesNotAffectOthers(t *testing.T) {
	b := New[int]()
	a := b.Subscribe("C")
	c := b.Subscribe("C")

	b.Publish("C", 1)
	a.Close()
	a.Close()
	b.Publish("C", 2)

	require.Equal(t, []int{1, 2}, drain(c))
	require.Equal(t, 1, b.Publish("C", 3))

	_, err := a.Next(context.Background())
	require.NoError(t, err)
	_, err = a.Next(context.Background())
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestBusSlowSubscriberNeverBlocks(t *testing.T) {
	b := New[int]()
	idle := b.Subscribe(All)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10_000; i++ {
			b.Publish("C", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on an idle subscriber")
	}
	require.Equal(t, 10_000, idle.Len())
}

func TestSubscriptionRun(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe("C")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []int
	finished := make(chan struct{})
	go func() {
		sub.Run(ctx, func(v int) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		})
		close(finished)
	}()

	for i := 1; i <= 3; i++ {
		b.Publish("C", i)
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	b.Close()
	<-finished
	require.Equal(t, []int{1, 2, 3}, got)
	require.Equal(t, 0, b.Publish("C", 4))
	require.Equal(t, 0, b.Subscribe("C").Len())
}

func TestQueueGrowKeepsOrder(t *testing.T) {
	q := NewQueue[int](2)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	v, _ := q.TryPop()
	require.Equal(t, 0, v)
	for i := 5; i < 9; i++ {
		q.Push(i)
	}
	var out []int
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		out = append(out, v)
	}
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, out)
}

func TestQueuePopContext(t *testing.T) {
	q := NewQueue[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
