package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/shorty/models"
	testingutil "github.com/amirphl/shorty/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clickFor(linkID uint) models.ClickEvent {
	return models.ClickEvent{ShortLinkID: linkID, ClickedAt: time.Now().UTC()}
}

func TestClickQueue_DrainsOnStop(t *testing.T) {
	repo := testingutil.NewFakeClickEventRepository()
	q := NewClickQueue(repo, 64, 4, time.Second)
	stop := q.Start(context.Background())

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, q.Record(context.Background(), clickFor(uint(i%3+1))))
		}()
	}
	wg.Wait()
	stop()

	assert.Equal(t, 40, repo.Len())
	count, err := repo.CountByShortLink(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(14), count)
}

func TestClickQueue_DropsWhenFull(t *testing.T) {
	repo := testingutil.NewFakeClickEventRepository()
	q := NewClickQueue(repo, 2, 1, time.Second)

	require.NoError(t, q.Record(context.Background(), clickFor(1)))
	require.NoError(t, q.Record(context.Background(), clickFor(1)))
	assert.ErrorIs(t, q.Record(context.Background(), clickFor(1)), ErrClickQueueFull)

	stop := q.Start(context.Background())
	stop()
	assert.Equal(t, 2, repo.Len())
}

func TestClickQueue_RejectsAfterStop(t *testing.T) {
	q := NewClickQueue(testingutil.NewFakeClickEventRepository(), 4, 1, time.Second)
	stop := q.Start(context.Background())
	stop()
	stop()

	assert.ErrorIs(t, q.Record(context.Background(), clickFor(1)), ErrClickQueueClosed)
}

func TestClickQueue_ParentCancellationStillDrains(t *testing.T) {
	repo := testingutil.NewFakeClickEventRepository()
	q := NewClickQueue(repo, 8, 1, time.Second)

	for range 5 {
		require.NoError(t, q.Record(context.Background(), clickFor(1)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stop := q.Start(ctx)
	stop()

	assert.Equal(t, 5, repo.Len())
}

func TestClickQueue_WriteFailureIsSwallowed(t *testing.T) {
	repo := testingutil.NewFakeClickEventRepository()
	repo.SaveErr = errors.New("database unavailable")
	q := NewClickQueue(repo, 4, 2, 100*time.Millisecond)
	stop := q.Start(context.Background())

	require.NoError(t, q.Record(context.Background(), clickFor(1)))
	stop()
	assert.Zero(t, repo.Len())
}
