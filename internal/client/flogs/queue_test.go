package flogs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_RunsJobsInOrder(t *testing.T) {
	var q queue
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 100; i++ {
		q.submit(context.Background(), func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.wait()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestQueue_DetachesCancellation(t *testing.T) {
	var q queue
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var jobErr error
	q.submit(ctx, func(ctx context.Context) { jobErr = ctx.Err() })
	q.wait()
	assert.NoError(t, jobErr)
}

func TestQueue_RestartsAfterDrain(t *testing.T) {
	var q queue
	runs := 0
	q.submit(context.TODO(), func(context.Context) { runs++ })
	q.wait()
	q.submit(context.Background(), func(context.Context) { runs++ })
	q.wait()
	assert.Equal(t, 2, runs)
}
