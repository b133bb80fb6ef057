package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

func TestDeriveTitle(t *testing.T) {
	tests := map[string]string{
		"What is the capital of France today?": "What is the capital of...",
		"Hello there":                          "Hello there...",
		"  spaced   out\tprompt ":              "spaced out prompt...",
		"":                                     DefaultTitle,
		"   ":                                  DefaultTitle,
	}
	for in, want := range tests {
		assert.Equal(t, want, DeriveTitle(in), in)
	}
}

// runStoreSuite exercises a Store implementation. The Postgres
// integration test runs it too.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateConversation(ctx, "Hello there...", "gpt-4o")
		require.NoError(t, err)
		assert.NotZero(t, c.ID)
		assert.False(t, c.Timestamp.IsZero())

		got, err := s.GetConversation(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello there...", got.Title)
		assert.Equal(t, "gpt-4o", got.Model)
		assert.Empty(t, got.Messages)
	})

	t.Run("messages keep order and shape", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateConversation(ctx, "Image question...", "gpt-4o")
		require.NoError(t, err)

		user := Message{
			Role: providers.RoleUser,
			Content: providers.ListContent(
				providers.TextBlock("What is in this picture?"),
				providers.ImageBlock("data:image/png;base64,AAAA"),
			),
		}
		_, err = s.AppendMessage(ctx, c.ID, user)
		require.NoError(t, err)

		reply, err := s.AppendMessage(ctx, c.ID, Message{
			Role:     providers.RoleAssistant,
			Content:  providers.TextContent("A cat."),
			Provider: providers.OpenAI,
			Model:    "gpt-4o",
		})
		require.NoError(t, err)
		assert.NotZero(t, reply.ID)

		got, err := s.GetConversation(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2)

		assert.Equal(t, providers.RoleUser, got.Messages[0].Role)
		assert.False(t, got.Messages[0].Content.IsText())
		assert.True(t, got.Messages[0].Content.HasImage())
		assert.Equal(t, "What is in this picture?", got.Messages[0].Content.PlainText())

		assert.Equal(t, "A cat.", got.Messages[1].Content.PlainText())
		assert.Equal(t, providers.OpenAI, got.Messages[1].Provider)
		assert.Equal(t, "gpt-4o", got.Messages[1].Model)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		first, err := s.CreateConversation(ctx, "first", "gpt-3.5-turbo")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		second, err := s.CreateConversation(ctx, "second", "deepseek-chat")
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, second.ID, Message{Role: providers.RoleUser, Content: providers.TextContent("hi")})
		require.NoError(t, err)

		list, err := s.ListConversations(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
		assert.Empty(t, list[0].Messages)
	})

	t.Run("not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetConversation(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.AppendMessage(ctx, 9999, Message{Role: providers.RoleUser, Content: providers.TextContent("x")})
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.DeleteConversation(ctx, 9999), ErrNotFound)
	})

	t.Run("rejects invalid messages", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateConversation(ctx, "t", "m")
		require.NoError(t, err)

		_, err = s.AppendMessage(ctx, c.ID, Message{Role: "robot", Content: providers.TextContent("x")})
		assert.Error(t, err)
		_, err = s.AppendMessage(ctx, c.ID, Message{Role: providers.RoleUser, Content: providers.TextContent("")})
		assert.Error(t, err)
	})

	t.Run("delete and clear", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateConversation(ctx, "a", "m")
		require.NoError(t, err)
		b, err := s.CreateConversation(ctx, "b", "m")
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, a.ID, Message{Role: providers.RoleUser, Content: providers.TextContent("x")})
		require.NoError(t, err)

		require.NoError(t, s.DeleteConversation(ctx, a.ID))
		_, err = s.GetConversation(ctx, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetConversation(ctx, b.ID)
		require.NoError(t, err)

		require.NoError(t, s.ClearConversations(ctx))
		list, err := s.ListConversations(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("concurrent appends", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateConversation(ctx, "busy", "m")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.AppendMessage(ctx, c.ID, Message{Role: providers.RoleUser, Content: providers.TextContent("x")})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.GetConversation(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, got.Messages, 20)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c, err := s.CreateConversation(ctx, "t", "m")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c.ID, Message{Role: providers.RoleUser, Content: providers.TextContent("x")})
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	got.Messages[0].Model = "mutated"
	got.Title = "mutated"

	again, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title)
	assert.Empty(t, again.Messages[0].Model)
}
