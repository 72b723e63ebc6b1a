package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/pkg/chat"
)

// backends lists every Store implementation under the same conformance
// tests.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisStore := NewRedisStoreFromClient(client, "test:", 0)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"redis":  redisStore,
	}
}

func sampleHistory() []chat.Message {
	return []chat.Message{
		{ID: "m1", Role: chat.RoleUser, Text: "design a crm", Timestamp: time.Now().UTC().Truncate(time.Second)},
		{ID: "m2", Role: chat.RoleModel, Text: "Done.", Thinking: "plan the schema first"},
	}
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			_, err := s.LoadHistory(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			want := sampleHistory()
			require.NoError(t, s.SaveHistory(ctx, want))

			got, err := s.LoadHistory(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "m1", got[0].ID)
			assert.Equal(t, chat.RoleUser, got[0].Role)
			assert.Equal(t, "plan the schema first", got[1].Thinking)
		})
	}
}

func TestStore_DocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			_, err := s.LoadDocument(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			want := document.State{Content: "# Draft", Version: 3}
			require.NoError(t, s.SaveDocument(ctx, want))

			got, err := s.LoadDocument(ctx)
			require.NoError(t, err)
			assert.Equal(t, "# Draft", got.Content)
			assert.Equal(t, 3, got.Version)
		})
	}
}

func TestStore_CredentialRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			_, err := s.LoadCredential(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SaveCredential(ctx, "key-abc"))
			got, err := s.LoadCredential(ctx)
			require.NoError(t, err)
			assert.Equal(t, "key-abc", got)

			// Clearing is saving the empty string.
			require.NoError(t, s.SaveCredential(ctx, ""))
			got, err = s.LoadCredential(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_ResetKeepsCredential(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			require.NoError(t, s.SaveHistory(ctx, sampleHistory()))
			require.NoError(t, s.SaveDocument(ctx, document.State{Content: "# Draft", Version: 1}))
			require.NoError(t, s.SaveCredential(ctx, "key-abc"))

			require.NoError(t, s.Reset(ctx))

			_, err := s.LoadHistory(ctx)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.LoadDocument(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			cred, err := s.LoadCredential(ctx)
			require.NoError(t, err)
			assert.Equal(t, "key-abc", cred)
		})
	}
}

func TestStore_ClosedStoreRejectsOperations(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())

			_, err := s.LoadHistory(ctx)
			assert.ErrorIs(t, err, ErrStoreClosed)
			assert.ErrorIs(t, s.SaveHistory(ctx, nil), ErrStoreClosed)
			assert.ErrorIs(t, s.Reset(ctx), ErrStoreClosed)
		})
	}
}

func TestMemoryStore_SaveCopiesHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	msgs := sampleHistory()
	require.NoError(t, s.SaveHistory(ctx, msgs))
	msgs[0].Text = "mutated"

	got, err := s.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "design a crm", got[0].Text)
}

func TestRedisStore_TTLApplied(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "ttl:", time.Minute)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.SaveDocument(ctx, document.State{Content: "# Draft", Version: 1}))

	mr.FastForward(2 * time.Minute)
	_, err := s.LoadDocument(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
