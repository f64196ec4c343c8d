package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository()

	msg := domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventTypeOrderCreated,
		Payload:       []byte(`{"order_id":"order-1"}`),
	}

	saved, err := repo.Enqueue(ctx, msg)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	second, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.AggregateStore})
	require.NoError(t, err)

	pending, err := repo.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, saved.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)

	limited, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository()

	saved, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.AggregateOrder})
	require.NoError(t, err)

	require.NoError(t, repo.MarkSent(ctx, saved.ID))
	require.Empty(t, repo.AllPending())

	require.NoError(t, repo.MarkFailed(ctx, saved.ID))
	require.ErrorIs(t, repo.MarkFailed(ctx, "missing"), domain.ErrOutboxPublish)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
	require.True(t, stats.OldestPendingAt.IsZero())
}
