package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// MockRepository is a mock implementation of conversation.Repository.
type MockRepository struct {
	CreateFunc               func(ctx context.Context, conv *conversation.Conversation) error
	FindByPublicIDFunc       func(ctx context.Context, publicID string) (*conversation.Conversation, error)
	FindActiveByDedupKeyFunc func(ctx context.Context, key string) (*conversation.Conversation, error)
	ListForUserFunc          func(ctx context.Context, userID string) ([]conversation.Summary, error)
	ArchiveFunc              func(ctx context.Context, conversationID uint, at time.Time) error
	UpdateLastMessageAtFunc  func(ctx context.Context, conversationID uint, at time.Time) error
	RenameFunc               func(ctx context.Context, conversationID uint, name string) error
}

func (m *MockRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, conv)
	}
	return nil
}

func (m *MockRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	if m.FindByPublicIDFunc != nil {
		return m.FindByPublicIDFunc(ctx, publicID)
	}
	return nil, notFound(ctx)
}

func (m *MockRepository) FindActiveByDedupKey(ctx context.Context, key string) (*conversation.Conversation, error) {
	if m.FindActiveByDedupKeyFunc != nil {
		return m.FindActiveByDedupKeyFunc(ctx, key)
	}
	return nil, notFound(ctx)
}

func (m *MockRepository) ListForUser(ctx context.Context, userID string) ([]conversation.Summary, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockRepository) Archive(ctx context.Context, conversationID uint, at time.Time) error {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, conversationID, at)
	}
	return nil
}

func (m *MockRepository) UpdateLastMessageAt(ctx context.Context, conversationID uint, at time.Time) error {
	if m.UpdateLastMessageAtFunc != nil {
		return m.UpdateLastMessageAtFunc(ctx, conversationID, at)
	}
	return nil
}

func (m *MockRepository) Rename(ctx context.Context, conversationID uint, name string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, conversationID, name)
	}
	return nil
}

// MockParticipantRepository is a mock implementation of conversation.ParticipantRepository.
type MockParticipantRepository struct {
	AddFunc             func(ctx context.Context, conversationID uint, p *conversation.Participant) error
	FindFunc            func(ctx context.Context, conversationID uint, userID string) (*conversation.Participant, error)
	ReactivateFunc      func(ctx context.Context, conversationID uint, userID string) error
	SetLeftAtFunc       func(ctx context.Context, conversationID uint, userID string, at time.Time) error
	SetMutedFunc        func(ctx context.Context, conversationID uint, userID string, muted bool) error
	AdvanceLastReadFunc func(ctx context.Context, conversationID uint, userID string, at time.Time) error
	ListActiveFunc      func(ctx context.Context, conversationID uint) ([]conversation.Participant, error)
}

func (m *MockParticipantRepository) Add(ctx context.Context, conversationID uint, p *conversation.Participant) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, conversationID, p)
	}
	return nil
}

func (m *MockParticipantRepository) Find(ctx context.Context, conversationID uint, userID string) (*conversation.Participant, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, conversationID, userID)
	}
	return nil, notFound(ctx)
}

func (m *MockParticipantRepository) Reactivate(ctx context.Context, conversationID uint, userID string) error {
	if m.ReactivateFunc != nil {
		return m.ReactivateFunc(ctx, conversationID, userID)
	}
	return nil
}

func (m *MockParticipantRepository) SetLeftAt(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	if m.SetLeftAtFunc != nil {
		return m.SetLeftAtFunc(ctx, conversationID, userID, at)
	}
	return nil
}

func (m *MockParticipantRepository) SetMuted(ctx context.Context, conversationID uint, userID string, muted bool) error {
	if m.SetMutedFunc != nil {
		return m.SetMutedFunc(ctx, conversationID, userID, muted)
	}
	return nil
}

func (m *MockParticipantRepository) AdvanceLastRead(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	if m.AdvanceLastReadFunc != nil {
		return m.AdvanceLastReadFunc(ctx, conversationID, userID, at)
	}
	return nil
}

func (m *MockParticipantRepository) ListActive(ctx context.Context, conversationID uint) ([]conversation.Participant, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, conversationID)
	}
	return nil, nil
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"record not found", nil, "test-not-found")
}

func newTestService(repo *MockRepository, participants *MockParticipantRepository) *conversation.DefaultService {
	return conversation.NewService(repo, participants, 8, zerolog.Nop())
}

func activeConversation(convType conversation.Type, userIDs ...string) *conversation.Conversation {
	conv := &conversation.Conversation{
		ID:       1,
		PublicID: "conv_test",
		Type:     convType,
	}
	for _, id := range userIDs {
		role := conversation.RoleMember
		if len(conv.Participants) == 0 {
			role = conversation.RoleAdmin
		}
		conv.Participants = append(conv.Participants, conversation.Participant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           role,
			JoinedAt:       time.Now().UTC(),
		})
	}
	return conv
}

func TestGetOrCreateDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects identical users", func(t *testing.T) {
		svc := newTestService(&MockRepository{}, &MockParticipantRepository{})
		_, err := svc.GetOrCreateDirect(ctx, "alice", "alice")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("returns existing conversation", func(t *testing.T) {
		existing := activeConversation(conversation.TypeDirect, "alice", "bob")
		created := false
		repo := &MockRepository{
			FindActiveByDedupKeyFunc: func(ctx context.Context, key string) (*conversation.Conversation, error) {
				if key != conversation.DirectDedupKey("alice", "bob") {
					t.Fatalf("unexpected dedup key %q", key)
				}
				return existing, nil
			},
			CreateFunc: func(ctx context.Context, conv *conversation.Conversation) error {
				created = true
				return nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		conv, err := svc.GetOrCreateDirect(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conv != existing {
			t.Fatal("expected the existing conversation to be returned")
		}
		if created {
			t.Fatal("should not create when an active conversation exists")
		}
	})

	t.Run("creates with both users as admins", func(t *testing.T) {
		var captured *conversation.Conversation
		repo := &MockRepository{
			CreateFunc: func(ctx context.Context, conv *conversation.Conversation) error {
				captured = conv
				return nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		conv, err := svc.GetOrCreateDirect(ctx, "bob", "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if captured == nil {
			t.Fatal("expected Create to be called")
		}
		if conv.Type != conversation.TypeDirect {
			t.Fatalf("expected direct type, got %q", conv.Type)
		}
		if len(conv.Participants) != 2 {
			t.Fatalf("expected 2 participants, got %d", len(conv.Participants))
		}
		for _, p := range conv.Participants {
			if p.Role != conversation.RoleAdmin {
				t.Fatalf("participant %s should be admin, got %q", p.UserID, p.Role)
			}
		}
	})

	t.Run("creation race loser re-reads the winner", func(t *testing.T) {
		winner := activeConversation(conversation.TypeDirect, "alice", "bob")
		calls := 0
		repo := &MockRepository{
			FindActiveByDedupKeyFunc: func(ctx context.Context, key string) (*conversation.Conversation, error) {
				calls++
				if calls == 1 {
					return nil, notFound(ctx)
				}
				return winner, nil
			},
			CreateFunc: func(ctx context.Context, conv *conversation.Conversation) error {
				return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
					"duplicate dedup key", nil, "test-conflict")
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		conv, err := svc.GetOrCreateDirect(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conv != winner {
			t.Fatal("expected the winning row after the conflict")
		}
	})
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		groupName string
		creator   string
		members   []string
		wantErr   bool
	}{
		{name: "missing name", groupName: "  ", creator: "alice", members: []string{"bob"}, wantErr: true},
		{name: "no members", groupName: "Class of 2015", creator: "alice", members: nil, wantErr: true},
		{name: "too large", groupName: "Class of 2015", creator: "alice", members: []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}, wantErr: true},
		{name: "valid", groupName: "Class of 2015", creator: "alice", members: []string{"bob", "carol"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&MockRepository{}, &MockParticipantRepository{})
			conv, err := svc.CreateGroup(ctx, tt.groupName, tt.creator, tt.members)
			if tt.wantErr {
				if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if conv.Name == nil || *conv.Name != tt.groupName {
				t.Fatalf("expected name %q, got %v", tt.groupName, conv.Name)
			}
		})
	}

	t.Run("deduplicates members and keeps creator admin", func(t *testing.T) {
		svc := newTestService(&MockRepository{}, &MockParticipantRepository{})
		conv, err := svc.CreateGroup(ctx, "Mentors", "alice", []string{"bob", "bob", "alice", "carol", ""})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conv.Participants) != 3 {
			t.Fatalf("expected 3 distinct participants, got %d", len(conv.Participants))
		}
		creator := conv.Participant("alice")
		if creator == nil || creator.Role != conversation.RoleAdmin {
			t.Fatal("creator should be admin")
		}
		member := conv.Participant("bob")
		if member == nil || member.Role != conversation.RoleMember {
			t.Fatal("added members should have the member role")
		}
	})
}

func TestAddParticipant(t *testing.T) {
	ctx := context.Background()

	t.Run("requires admin", func(t *testing.T) {
		conv := activeConversation(conversation.TypeGroup, "alice", "bob")
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		err := svc.AddParticipant(ctx, conv.PublicID, "bob", "carol")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
			t.Fatalf("expected forbidden error, got %v", err)
		}
	})

	t.Run("adds a new member", func(t *testing.T) {
		conv := activeConversation(conversation.TypeGroup, "alice", "bob")
		var added *conversation.Participant
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
		}
		participants := &MockParticipantRepository{
			AddFunc: func(ctx context.Context, conversationID uint, p *conversation.Participant) error {
				added = p
				return nil
			},
		}
		svc := newTestService(repo, participants)

		if err := svc.AddParticipant(ctx, conv.PublicID, "alice", "carol"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if added == nil || added.UserID != "carol" || added.Role != conversation.RoleMember {
			t.Fatalf("expected carol added as member, got %+v", added)
		}
	})

	t.Run("reactivates a removed member", func(t *testing.T) {
		conv := activeConversation(conversation.TypeGroup, "alice", "bob")
		left := time.Now().UTC().Add(-time.Hour)
		conv.Participants[1].LeftAt = &left

		reactivated := false
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
		}
		participants := &MockParticipantRepository{
			ReactivateFunc: func(ctx context.Context, conversationID uint, userID string) error {
				if userID != "bob" {
					t.Fatalf("expected bob reactivated, got %q", userID)
				}
				reactivated = true
				return nil
			},
		}
		svc := newTestService(repo, participants)

		if err := svc.AddParticipant(ctx, conv.PublicID, "alice", "bob"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reactivated {
			t.Fatal("expected the existing row to be reactivated")
		}
	})

	t.Run("adding an active member is a no-op", func(t *testing.T) {
		conv := activeConversation(conversation.TypeGroup, "alice", "bob")
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
		}
		participants := &MockParticipantRepository{
			AddFunc: func(ctx context.Context, conversationID uint, p *conversation.Participant) error {
				t.Fatal("Add should not be called for an active member")
				return nil
			},
		}
		svc := newTestService(repo, participants)

		if err := svc.AddParticipant(ctx, conv.PublicID, "alice", "bob"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRemoveParticipant(t *testing.T) {
	ctx := context.Background()
	conv := activeConversation(conversation.TypeGroup, "alice", "bob")
	repo := &MockRepository{
		FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
			return conv, nil
		},
	}

	t.Run("soft-removes via LeftAt", func(t *testing.T) {
		removed := false
		participants := &MockParticipantRepository{
			SetLeftAtFunc: func(ctx context.Context, conversationID uint, userID string, at time.Time) error {
				if userID != "bob" {
					t.Fatalf("expected bob removed, got %q", userID)
				}
				removed = true
				return nil
			},
		}
		svc := newTestService(repo, participants)

		if err := svc.RemoveParticipant(ctx, conv.PublicID, "alice", "bob"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !removed {
			t.Fatal("expected SetLeftAt to be called")
		}
	})

	t.Run("removing an unknown user is a no-op", func(t *testing.T) {
		participants := &MockParticipantRepository{
			SetLeftAtFunc: func(ctx context.Context, conversationID uint, userID string, at time.Time) error {
				t.Fatal("SetLeftAt should not be called")
				return nil
			},
		}
		svc := newTestService(repo, participants)

		if err := svc.RemoveParticipant(ctx, conv.PublicID, "alice", "nobody"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRenameGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-group conversations", func(t *testing.T) {
		conv := activeConversation(conversation.TypeDirect, "alice", "bob")
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		err := svc.RenameGroup(ctx, conv.PublicID, "alice", "New Name")
		if !platformerrors.IsType(err, platformerrors.ErrorTypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("renames", func(t *testing.T) {
		conv := activeConversation(conversation.TypeGroup, "alice", "bob")
		renamed := ""
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
			RenameFunc: func(ctx context.Context, conversationID uint, name string) error {
				renamed = name
				return nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		if err := svc.RenameGroup(ctx, conv.PublicID, "alice", "  Batch 2012  "); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if renamed != "Batch 2012" {
			t.Fatalf("expected trimmed name, got %q", renamed)
		}
	})
}

func TestArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("archives an active conversation", func(t *testing.T) {
		conv := activeConversation(conversation.TypeDirect, "alice", "bob")
		archived := false
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
			ArchiveFunc: func(ctx context.Context, conversationID uint, at time.Time) error {
				archived = true
				return nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		if err := svc.Archive(ctx, conv.PublicID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !archived {
			t.Fatal("expected Archive to be called")
		}
	})

	t.Run("archiving twice is a no-op", func(t *testing.T) {
		conv := activeConversation(conversation.TypeDirect, "alice", "bob")
		conv.IsArchived = true
		repo := &MockRepository{
			FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
				return conv, nil
			},
			ArchiveFunc: func(ctx context.Context, conversationID uint, at time.Time) error {
				t.Fatal("Archive should not be called again")
				return nil
			},
		}
		svc := newTestService(repo, &MockParticipantRepository{})

		if err := svc.Archive(ctx, conv.PublicID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestActiveParticipant(t *testing.T) {
	ctx := context.Background()
	conv := activeConversation(conversation.TypeGroup, "alice", "bob")
	left := time.Now().UTC()
	conv.Participants[1].LeftAt = &left

	repo := &MockRepository{
		FindByPublicIDFunc: func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
			return conv, nil
		},
	}
	svc := newTestService(repo, &MockParticipantRepository{})

	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{name: "active member", userID: "alice", wantErr: false},
		{name: "left member", userID: "bob", wantErr: true},
		{name: "stranger", userID: "mallory", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p, err := svc.ActiveParticipant(ctx, conv.PublicID, tt.userID)
			if tt.wantErr {
				if !platformerrors.IsType(err, platformerrors.ErrorTypeForbidden) {
					t.Fatalf("expected forbidden error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p == nil || p.UserID != tt.userID {
				t.Fatalf("expected participant %q, got %+v", tt.userID, p)
			}
		})
	}
}

func TestDedupKeys(t *testing.T) {
	if conversation.DirectDedupKey("bob", "alice") != conversation.DirectDedupKey("alice", "bob") {
		t.Fatal("direct dedup key must be order independent")
	}
	if conversation.DirectDedupKey("alice", "bob") != "direct:alice:bob" {
		t.Fatalf("unexpected key %q", conversation.DirectDedupKey("alice", "bob"))
	}
	if conversation.ContentDedupKey("post_42") != "content:post_42" {
		t.Fatalf("unexpected key %q", conversation.ContentDedupKey("post_42"))
	}

	group := activeConversation(conversation.TypeGroup, "alice", "bob")
	if group.DedupKey() != nil {
		t.Fatal("group conversations carry no dedup key")
	}

	direct := activeConversation(conversation.TypeDirect, "alice", "bob")
	if key := direct.DedupKey(); key == nil || *key != "direct:alice:bob" {
		t.Fatalf("unexpected direct key %v", key)
	}

	direct.IsArchived = true
	if direct.DedupKey() != nil {
		t.Fatal("archived conversations release their dedup key")
	}
}
