package conversation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[int64]*Conversation
	nextConvID    int64
	nextMsgID     int64
	now           func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[int64]*Conversation),
		nextConvID:    1,
		nextMsgID:     1,
		now:           time.Now,
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, title, model string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Conversation{
		ID:        s.nextConvID,
		Title:     title,
		Model:     model,
		Timestamp: s.now().UTC(),
	}
	s.nextConvID++
	s.conversations[c.ID] = c

	out := *c
	return &out, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id int64) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("get conversation %d: %w", id, ErrNotFound)
	}
	out := *c
	out.Messages = slices.Clone(c.Messages)
	return &out, nil
}

func (s *MemoryStore) ListConversations(_ context.Context) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		item := *c
		item.Messages = nil
		list = append(list, item)
	}
	slices.SortFunc(list, func(a, b Conversation) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return list, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, conversationID int64, msg Message) (*Message, error) {
	if err := validateMessage(msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("append message to %d: %w", conversationID, ErrNotFound)
	}

	msg.ID = s.nextMsgID
	s.nextMsgID++
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	c.Messages = append(c.Messages, msg)
	return &msg, nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("delete conversation %d: %w", id, ErrNotFound)
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) ClearConversations(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[int64]*Conversation)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}
