package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// MockRepository is a mock implementation of message.Repository.
type MockRepository struct {
	CreateFunc         func(ctx context.Context, m *message.Message) error
	FindByPublicIDFunc func(ctx context.Context, publicID string) (*message.Message, error)
	ListPageFunc       func(ctx context.Context, conversationID uint, cursor *message.Cursor, limit int) ([]*message.Message, error)
	SetEditedFunc      func(ctx context.Context, id uint, content string, at time.Time) error
	SetDeletedFunc     func(ctx context.Context, id uint, at time.Time) error
	AddReactionFunc    func(ctx context.Context, r *message.Reaction) error
	RemoveReactionFunc func(ctx context.Context, messageID uint, userID, emoji string) error
	ListReactionsFunc  func(ctx context.Context, messageID uint) ([]message.Reaction, error)
	InsertReceiptsFunc func(ctx context.Context, conversationID uint, userID string, upTo *message.Message) error
}

func (m *MockRepository) Create(ctx context.Context, msg *message.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	return nil
}

func (m *MockRepository) FindByPublicID(ctx context.Context, publicID string) (*message.Message, error) {
	if m.FindByPublicIDFunc != nil {
		return m.FindByPublicIDFunc(ctx, publicID)
	}
	return nil, notFound(ctx)
}

func (m *MockRepository) ListPage(ctx context.Context, conversationID uint, cursor *message.Cursor, limit int) ([]*message.Message, error) {
	if m.ListPageFunc != nil {
		return m.ListPageFunc(ctx, conversationID, cursor, limit)
	}
	return nil, nil
}

func (m *MockRepository) SetEdited(ctx context.Context, id uint, content string, at time.Time) error {
	if m.SetEditedFunc != nil {
		return m.SetEditedFunc(ctx, id, content, at)
	}
	return nil
}

func (m *MockRepository) SetDeleted(ctx context.Context, id uint, at time.Time) error {
	if m.SetDeletedFunc != nil {
		return m.SetDeletedFunc(ctx, id, at)
	}
	return nil
}

func (m *MockRepository) AddReaction(ctx context.Context, r *message.Reaction) error {
	if m.AddReactionFunc != nil {
		return m.AddReactionFunc(ctx, r)
	}
	return nil
}

func (m *MockRepository) RemoveReaction(ctx context.Context, messageID uint, userID, emoji string) error {
	if m.RemoveReactionFunc != nil {
		return m.RemoveReactionFunc(ctx, messageID, userID, emoji)
	}
	return nil
}

func (m *MockRepository) ListReactions(ctx context.Context, messageID uint) ([]message.Reaction, error) {
	if m.ListReactionsFunc != nil {
		return m.ListReactionsFunc(ctx, messageID)
	}
	return nil, nil
}

func (m *MockRepository) InsertReceipts(ctx context.Context, conversationID uint, userID string, upTo *message.Message) error {
	if m.InsertReceiptsFunc != nil {
		return m.InsertReceiptsFunc(ctx, conversationID, userID, upTo)
	}
	return nil
}

// MockConversationService is a mock implementation of conversation.Service.
// Only includes the methods the message service actually uses.
type MockConversationService struct {
	ActiveParticipantFunc func(ctx context.Context, publicID, userID string) (*conversation.Conversation, *conversation.Participant, error)
	GetFunc               func(ctx context.Context, publicID, requesterID string) (*conversation.Conversation, error)
	TouchLastMessageFunc  func(ctx context.Context, conversationID uint, at time.Time) error
	AdvanceLastReadFunc   func(ctx context.Context, conversationID uint, userID string, at time.Time) error
}

func (m *MockConversationService) ActiveParticipant(ctx context.Context, publicID, userID string) (*conversation.Conversation, *conversation.Participant, error) {
	if m.ActiveParticipantFunc != nil {
		return m.ActiveParticipantFunc(ctx, publicID, userID)
	}
	return nil, nil, notFound(ctx)
}

func (m *MockConversationService) Get(ctx context.Context, publicID, requesterID string) (*conversation.Conversation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, publicID, requesterID)
	}
	return nil, notFound(ctx)
}

func (m *MockConversationService) TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error {
	if m.TouchLastMessageFunc != nil {
		return m.TouchLastMessageFunc(ctx, conversationID, at)
	}
	return nil
}

func (m *MockConversationService) AdvanceLastRead(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	if m.AdvanceLastReadFunc != nil {
		return m.AdvanceLastReadFunc(ctx, conversationID, userID, at)
	}
	return nil
}

func (m *MockConversationService) GetOrCreateDirect(ctx context.Context, userA, userB string) (*conversation.Conversation, error) {
	return nil, nil
}

func (m *MockConversationService) GetOrCreateContentLinked(ctx context.Context, contentID, creatorID string) (*conversation.Conversation, error) {
	return nil, nil
}

func (m *MockConversationService) CreateGroup(ctx context.Context, name, creatorID string, memberIDs []string) (*conversation.Conversation, error) {
	return nil, nil
}

func (m *MockConversationService) ListForUser(ctx context.Context, userID string) ([]conversation.Summary, error) {
	return nil, nil
}

func (m *MockConversationService) AddParticipant(ctx context.Context, publicID, actorID, userID string) error {
	return nil
}

func (m *MockConversationService) RemoveParticipant(ctx context.Context, publicID, actorID, userID string) error {
	return nil
}

func (m *MockConversationService) Leave(ctx context.Context, publicID, userID string) error {
	return nil
}

func (m *MockConversationService) SetMuted(ctx context.Context, publicID, userID string, muted bool) error {
	return nil
}

func (m *MockConversationService) RenameGroup(ctx context.Context, publicID, actorID, name string) error {
	return nil
}

func (m *MockConversationService) Archive(ctx context.Context, publicID string) error {
	return nil
}

// MockOutbox is a mock implementation of message.ModerationOutbox.
type MockOutbox struct {
	EnqueueDeletionFunc func(ctx context.Context, messagePublicID, conversationPublicID, actorID string) error
}

func (m *MockOutbox) EnqueueDeletion(ctx context.Context, messagePublicID, conversationPublicID, actorID string) error {
	if m.EnqueueDeletionFunc != nil {
		return m.EnqueueDeletionFunc(ctx, messagePublicID, conversationPublicID, actorID)
	}
	return nil
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"record not found", nil, "test-not-found")
}

func testConversation() *conversation.Conversation {
	return &conversation.Conversation{
		ID:       7,
		PublicID: "conv_room",
		Type:     conversation.TypeGroup,
		Participants: []conversation.Participant{
			{ConversationID: 7, UserID: "alice", Role: conversation.RoleAdmin},
			{ConversationID: 7, UserID: "bob", Role: conversation.RoleMember},
		},
	}
}

func memberOnly(userIDs ...string) *MockConversationService {
	conv := testConversation()
	allowed := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}
	return &MockConversationService{
		ActiveParticipantFunc: func(ctx context.Context, publicID, userID string) (*conversation.Conversation, *conversation.Participant, error) {
			if _, ok := allowed[userID]; !ok {
				return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
					"user is not an active participant", nil, "not-active-participant")
			}
			return conv, conv.Participant(userID), nil
		},
		GetFunc: func(ctx context.Context, publicID, requesterID string) (*conversation.Conversation, error) {
			return conv, nil
		},
	}
}

func newTestService(repo *MockRepository, conversations conversation.Service, outbox message.ModerationOutbox) *message.DefaultService {
	return message.NewService(repo, conversations, outbox, 50, 100, zerolog.Nop())
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty text content", func(t *testing.T) {
		svc := newTestService(&MockRepository{}, memberOnly("alice"), nil)
		_, err := svc.Send(ctx, message.SendParams{ConversationID: "conv_room", SenderID: "alice", Content: "   "})
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects non-participants", func(t *testing.T) {
		svc := newTestService(&MockRepository{}, memberOnly("alice"), nil)
		_, err := svc.Send(ctx, message.SendParams{ConversationID: "conv_room", SenderID: "mallory", Content: "hi"})
		if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
			t.Fatalf("expected forbidden error, got %v", err)
		}
	})

	t.Run("persists and touches conversation activity", func(t *testing.T) {
		now := time.Now().UTC()
		var created *message.Message
		repo := &MockRepository{
			CreateFunc: func(ctx context.Context, m *message.Message) error {
				m.ID = 101
				m.CreatedAt = now
				created = m
				return nil
			},
		}
		touched := false
		conversations := memberOnly("alice")
		conversations.TouchLastMessageFunc = func(ctx context.Context, conversationID uint, at time.Time) error {
			if conversationID != 7 || !at.Equal(now) {
				t.Fatalf("unexpected touch args: %d %v", conversationID, at)
			}
			touched = true
			return nil
		}
		svc := newTestService(repo, conversations, nil)

		msg, err := svc.Send(ctx, message.SendParams{ConversationID: "conv_room", SenderID: "alice", Content: "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created == nil || created.ConversationID != 7 {
			t.Fatalf("expected persisted message in conversation 7, got %+v", created)
		}
		if msg.PublicID == "" {
			t.Fatal("expected a generated public id")
		}
		if msg.Type != message.TypeText {
			t.Fatalf("expected default text type, got %q", msg.Type)
		}
		if !touched {
			t.Fatal("expected last_message_at to be advanced")
		}
	})

	t.Run("rejects replies across conversations", func(t *testing.T) {
		replyTo := "msg_other"
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				return &message.Message{ID: 5, PublicID: publicID, ConversationID: 99, SenderID: "bob", Content: "elsewhere"}, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		_, err := svc.Send(ctx, message.SendParams{
			ConversationID: "conv_room",
			SenderID:       "alice",
			Content:        "reply",
			ReplyToID:      &replyTo,
		})
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("builds a reply preview", func(t *testing.T) {
		replyTo := "msg_target"
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				return &message.Message{ID: 5, PublicID: publicID, ConversationID: 7, SenderID: "bob", Content: "original"}, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		msg, err := svc.Send(ctx, message.SendParams{
			ConversationID: "conv_room",
			SenderID:       "alice",
			Content:        "reply",
			ReplyToID:      &replyTo,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.ReplyPreview == nil || msg.ReplyPreview.Content != "original" || msg.ReplyPreview.SenderID != "bob" {
			t.Fatalf("unexpected preview %+v", msg.ReplyPreview)
		}
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	stored := &message.Message{ID: 10, PublicID: "msg_1", ConversationID: 7, ConversationPublicID: "conv_room", SenderID: "alice", Content: "first"}
	repoFor := func(m *message.Message) *MockRepository {
		return &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				copy := *m
				return &copy, nil
			},
		}
	}

	t.Run("only the sender may edit", func(t *testing.T) {
		svc := newTestService(repoFor(stored), memberOnly("alice", "bob"), nil)
		_, err := svc.Edit(ctx, "msg_1", "bob", "changed")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
			t.Fatalf("expected forbidden error, got %v", err)
		}
	})

	t.Run("deleted messages are immutable", func(t *testing.T) {
		deletedAt := time.Now().UTC()
		deleted := *stored
		deleted.DeletedAt = &deletedAt
		svc := newTestService(repoFor(&deleted), memberOnly("alice"), nil)

		_, err := svc.Edit(ctx, "msg_1", "alice", "changed")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
			t.Fatalf("expected forbidden error, got %v", err)
		}
	})

	t.Run("updates content and edit timestamp", func(t *testing.T) {
		repo := repoFor(stored)
		edited := false
		repo.SetEditedFunc = func(ctx context.Context, id uint, content string, at time.Time) error {
			if id != 10 || content != "changed" {
				t.Fatalf("unexpected edit args: %d %q", id, content)
			}
			edited = true
			return nil
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		msg, err := svc.Edit(ctx, "msg_1", "alice", "changed")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !edited || msg.EditedAt == nil || msg.Content != "changed" {
			t.Fatalf("expected edited message, got %+v", msg)
		}
	})
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	stored := &message.Message{ID: 10, PublicID: "msg_1", ConversationID: 7, ConversationPublicID: "conv_room", SenderID: "alice", Content: "secret"}
	repoFor := func(m *message.Message) *MockRepository {
		return &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				copy := *m
				return &copy, nil
			},
		}
	}

	t.Run("strangers may not delete", func(t *testing.T) {
		svc := newTestService(repoFor(stored), memberOnly("alice", "bob"), nil)
		_, err := svc.SoftDelete(ctx, "msg_1", message.Actor{UserID: "bob"})
		if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
			t.Fatalf("expected forbidden error, got %v", err)
		}
	})

	t.Run("sender deletion redacts content", func(t *testing.T) {
		svc := newTestService(repoFor(stored), memberOnly("alice"), &MockOutbox{
			EnqueueDeletionFunc: func(ctx context.Context, messagePublicID, conversationPublicID, actorID string) error {
				t.Fatal("sender deletions must not reach the moderation outbox")
				return nil
			},
		})

		msg, err := svc.SoftDelete(ctx, "msg_1", message.Actor{UserID: "alice"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Content != message.RedactedContent {
			t.Fatalf("expected redacted content, got %q", msg.Content)
		}
		if msg.DeletedAt == nil {
			t.Fatal("expected DeletedAt to be set")
		}
	})

	t.Run("moderator deletion enqueues a moderation event", func(t *testing.T) {
		enqueued := false
		outbox := &MockOutbox{
			EnqueueDeletionFunc: func(ctx context.Context, messagePublicID, conversationPublicID, actorID string) error {
				if messagePublicID != "msg_1" || conversationPublicID != "conv_room" || actorID != "mod_1" {
					t.Fatalf("unexpected outbox args: %q %q %q", messagePublicID, conversationPublicID, actorID)
				}
				enqueued = true
				return nil
			},
		}
		svc := newTestService(repoFor(stored), memberOnly("alice"), outbox)

		_, err := svc.SoftDelete(ctx, "msg_1", message.Actor{UserID: "mod_1", Moderator: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !enqueued {
			t.Fatal("expected a moderation event")
		}
	})

	t.Run("deleting twice is a no-op", func(t *testing.T) {
		deletedAt := time.Now().UTC()
		deleted := *stored
		deleted.DeletedAt = &deletedAt
		repo := repoFor(&deleted)
		repo.SetDeletedFunc = func(ctx context.Context, id uint, at time.Time) error {
			t.Fatal("SetDeleted should not be called again")
			return nil
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		msg, err := svc.SoftDelete(ctx, "msg_1", message.Actor{UserID: "alice"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Content != message.RedactedContent {
			t.Fatalf("expected redacted content, got %q", msg.Content)
		}
	})
}

func TestForward(t *testing.T) {
	ctx := context.Background()
	source := &message.Message{
		ID:                   10,
		PublicID:             "msg_src",
		ConversationID:       7,
		ConversationPublicID: "conv_room",
		SenderID:             "bob",
		Content:              "worth sharing",
		Type:                 message.TypeText,
		MediaMetadata:        map[string]any{"width": 640},
	}

	t.Run("deleted sources cannot be forwarded", func(t *testing.T) {
		deletedAt := time.Now().UTC()
		deleted := *source
		deleted.DeletedAt = &deletedAt
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				return &deleted, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		_, err := svc.Forward(ctx, "msg_src", "conv_room", "alice")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("copies content with a forward marker", func(t *testing.T) {
		var created *message.Message
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				copy := *source
				return &copy, nil
			},
			CreateFunc: func(ctx context.Context, m *message.Message) error {
				created = m
				return nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		msg, err := svc.Forward(ctx, "msg_src", "conv_room", "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created == nil {
			t.Fatal("expected the copy to be persisted")
		}
		if msg.SenderID != "alice" {
			t.Fatalf("forward copy should be owned by the forwarder, got %q", msg.SenderID)
		}
		src, ok := msg.ForwardedFrom()
		if !ok || src != "msg_src" {
			t.Fatalf("expected forward marker msg_src, got %q %v", src, ok)
		}
		if msg.MediaMetadata["width"] != 640 {
			t.Fatal("source metadata should be preserved on the copy")
		}
		if source.MediaMetadata[message.ForwardMarkerKey] != nil {
			t.Fatal("source metadata must not be mutated")
		}
	})
}

func TestReactions(t *testing.T) {
	ctx := context.Background()
	stored := &message.Message{ID: 10, PublicID: "msg_1", ConversationID: 7, ConversationPublicID: "conv_room", SenderID: "alice", Content: "hi"}

	t.Run("rejects empty emoji", func(t *testing.T) {
		svc := newTestService(&MockRepository{}, memberOnly("alice"), nil)
		_, err := svc.React(ctx, "msg_1", "alice", " ")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("adds and reloads reactions", func(t *testing.T) {
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				copy := *stored
				return &copy, nil
			},
			AddReactionFunc: func(ctx context.Context, r *message.Reaction) error {
				if r.MessageID != 10 || r.UserID != "bob" || r.Emoji != "👍" {
					t.Fatalf("unexpected reaction %+v", r)
				}
				return nil
			},
			ListReactionsFunc: func(ctx context.Context, messageID uint) ([]message.Reaction, error) {
				return []message.Reaction{{MessageID: 10, UserID: "bob", Emoji: "👍"}}, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice", "bob"), nil)

		msg, err := svc.React(ctx, "msg_1", "bob", "👍")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msg.Reactions) != 1 || msg.Reactions[0].Emoji != "👍" {
			t.Fatalf("expected reloaded reactions, got %+v", msg.Reactions)
		}
	})

	t.Run("non-participants may not react", func(t *testing.T) {
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				copy := *stored
				return &copy, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		_, err := svc.React(ctx, "msg_1", "mallory", "👍")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
			t.Fatalf("expected forbidden error, got %v", err)
		}
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	readAt := time.Now().UTC().Add(-time.Minute)
	upTo := &message.Message{ID: 42, PublicID: "msg_42", ConversationID: 7, ConversationPublicID: "conv_room", SenderID: "alice", Content: "hi", CreatedAt: readAt}

	t.Run("rejects messages from other conversations", func(t *testing.T) {
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				other := *upTo
				other.ConversationID = 99
				return &other, nil
			},
		}
		svc := newTestService(repo, memberOnly("bob"), nil)

		_, err := svc.MarkRead(ctx, "conv_room", "bob", "msg_42")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("inserts receipts and advances the watermark", func(t *testing.T) {
		inserted := false
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*message.Message, error) {
				copy := *upTo
				return &copy, nil
			},
			InsertReceiptsFunc: func(ctx context.Context, conversationID uint, userID string, m *message.Message) error {
				if conversationID != 7 || userID != "bob" || m.ID != 42 {
					t.Fatalf("unexpected receipt args: %d %q %d", conversationID, userID, m.ID)
				}
				inserted = true
				return nil
			},
		}
		advanced := false
		conversations := memberOnly("bob")
		conversations.AdvanceLastReadFunc = func(ctx context.Context, conversationID uint, userID string, at time.Time) error {
			if !at.Equal(readAt) {
				t.Fatalf("watermark should match the target message time, got %v", at)
			}
			advanced = true
			return nil
		}
		svc := newTestService(repo, conversations, nil)

		state, err := svc.MarkRead(ctx, "conv_room", "bob", "msg_42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inserted || !advanced {
			t.Fatal("expected receipts inserted and watermark advanced")
		}
		if state.UpToMessageID != "msg_42" || !state.LastReadAt.Equal(readAt) {
			t.Fatalf("unexpected read state %+v", state)
		}
	})
}

func TestListHistory(t *testing.T) {
	ctx := context.Background()
	base := time.Now().UTC()

	makeMessages := func(n int) []*message.Message {
		msgs := make([]*message.Message, n)
		for i := 0; i < n; i++ {
			msgs[i] = &message.Message{
				ID:                   uint(100 - i),
				PublicID:             "msg_" + string(rune('a'+i)),
				ConversationID:       7,
				ConversationPublicID: "conv_room",
				SenderID:             "alice",
				Content:              "hello",
				CreatedAt:            base.Add(-time.Duration(i) * time.Minute),
			}
		}
		return msgs
	}

	t.Run("returns a full page with a cursor", func(t *testing.T) {
		repo := &MockRepository{
			ListPageFunc: func(ctx context.Context, conversationID uint, cursor *message.Cursor, limit int) ([]*message.Message, error) {
				if limit != 3 {
					t.Fatalf("expected limit pageSize+1=3, got %d", limit)
				}
				return makeMessages(3), nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		page, err := svc.ListHistory(ctx, "conv_room", "alice", "", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Messages) != 2 || !page.HasMore || page.NextCursor == "" {
			t.Fatalf("unexpected page %+v", page)
		}

		cur, err := message.DecodeCursor(page.NextCursor)
		if err != nil {
			t.Fatalf("cursor should round-trip: %v", err)
		}
		last := page.Messages[len(page.Messages)-1]
		if cur.ID != last.ID || !cur.CreatedAt.Equal(last.CreatedAt) {
			t.Fatalf("cursor should address the last returned message, got %+v", cur)
		}
	})

	t.Run("last page has no cursor", func(t *testing.T) {
		repo := &MockRepository{
			ListPageFunc: func(ctx context.Context, conversationID uint, cursor *message.Cursor, limit int) ([]*message.Message, error) {
				return makeMessages(1), nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		page, err := svc.ListHistory(ctx, "conv_room", "alice", "", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.HasMore || page.NextCursor != "" {
			t.Fatalf("expected terminal page, got %+v", page)
		}
	})

	t.Run("redacts deleted messages in history", func(t *testing.T) {
		deletedAt := base
		repo := &MockRepository{
			ListPageFunc: func(ctx context.Context, conversationID uint, cursor *message.Cursor, limit int) ([]*message.Message, error) {
				msgs := makeMessages(2)
				msgs[0].DeletedAt = &deletedAt
				return msgs, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		page, err := svc.ListHistory(ctx, "conv_room", "alice", "", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Messages[0].Content != message.RedactedContent {
			t.Fatalf("deleted message should be redacted, got %q", page.Messages[0].Content)
		}
		if page.Messages[1].Content != "hello" {
			t.Fatalf("live message should be untouched, got %q", page.Messages[1].Content)
		}
	})

	t.Run("rejects malformed cursors", func(t *testing.T) {
		svc := newTestService(&MockRepository{}, memberOnly("alice"), nil)
		_, err := svc.ListHistory(ctx, "conv_room", "alice", "not-a-cursor", 5)
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("clamps oversized page requests", func(t *testing.T) {
		repo := &MockRepository{
			ListPageFunc: func(ctx context.Context, conversationID uint, cursor *message.Cursor, limit int) ([]*message.Message, error) {
				if limit != 101 {
					t.Fatalf("expected clamped limit 101, got %d", limit)
				}
				return nil, nil
			},
		}
		svc := newTestService(repo, memberOnly("alice"), nil)

		if _, err := svc.ListHistory(ctx, "conv_room", "alice", "", 5000); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
	encoded := message.EncodeCursor(&message.Cursor{CreatedAt: at, ID: 42})

	decoded, err := message.DecodeCursor(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.ID != 42 || !decoded.CreatedAt.Equal(at) {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}

	for _, raw := range []string{"", "abc", "12", "x_1", "1_y"} {
		if _, err := message.DecodeCursor(raw); err == nil {
			t.Fatalf("expected error for cursor %q", raw)
		}
	}
}

func TestSanitized(t *testing.T) {
	deletedAt := time.Now().UTC()
	url := "https://cdn.example.com/file.png"
	keyRef := "key_1"
	msg := &message.Message{
		PublicID:         "msg_1",
		Content:          "secret",
		MediaURL:         &url,
		MediaMetadata:    map[string]any{"size": 1024},
		EncryptionKeyRef: &keyRef,
		DeletedAt:        &deletedAt,
		ReplyPreview:     &message.ReplyPreview{PublicID: "msg_0", Content: "also secret", Deleted: true},
	}

	out := msg.Sanitized()
	if out.Content != message.RedactedContent {
		t.Fatalf("expected redacted content, got %q", out.Content)
	}
	if out.MediaURL != nil || out.MediaMetadata != nil || out.EncryptionKeyRef != nil {
		t.Fatal("deleted messages must not leak media or key references")
	}
	if out.ReplyPreview.Content != message.RedactedContent {
		t.Fatalf("deleted reply targets must render the placeholder, got %q", out.ReplyPreview.Content)
	}
	if msg.Content != "secret" {
		t.Fatal("the stored message must not be mutated")
	}
}
