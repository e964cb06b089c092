package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/idgen"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// Service defines the conversation lifecycle operations.
type Service interface {
	GetOrCreateDirect(ctx context.Context, userA, userB string) (*Conversation, error)
	GetOrCreateContentLinked(ctx context.Context, contentID, creatorID string) (*Conversation, error)
	CreateGroup(ctx context.Context, name, creatorID string, memberIDs []string) (*Conversation, error)
	Get(ctx context.Context, publicID, requesterID string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]Summary, error)
	AddParticipant(ctx context.Context, publicID, actorID, userID string) error
	RemoveParticipant(ctx context.Context, publicID, actorID, userID string) error
	Leave(ctx context.Context, publicID, userID string) error
	SetMuted(ctx context.Context, publicID, userID string, muted bool) error
	RenameGroup(ctx context.Context, publicID, actorID, name string) error
	Archive(ctx context.Context, publicID string) error

	// ActiveParticipant resolves the conversation and the requester's active
	// membership in one call. Used by the message service and the room
	// registry's membership check.
	ActiveParticipant(ctx context.Context, publicID, userID string) (*Conversation, *Participant, error)

	// TouchLastMessage advances the conversation's last-activity timestamp
	// after a message is persisted.
	TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error

	// AdvanceLastRead moves a participant's read watermark forward. Never
	// moves it backwards.
	AdvanceLastRead(ctx context.Context, conversationID uint, userID string, at time.Time) error
}

// DefaultService implements Service on top of the repositories.
type DefaultService struct {
	repo         Repository
	participants ParticipantRepository
	maxGroupSize int
	log          zerolog.Logger
}

// NewService creates a conversation service.
func NewService(repo Repository, participants ParticipantRepository, maxGroupSize int, log zerolog.Logger) *DefaultService {
	return &DefaultService{
		repo:         repo,
		participants: participants,
		maxGroupSize: maxGroupSize,
		log:          log.With().Str("component", "conversation-service").Logger(),
	}
}

// GetOrCreateDirect returns the active direct conversation between the two
// users, creating it when absent. Safe under concurrent calls from both
// sides: the dedup-key unique constraint resolves the race and the loser
// re-reads the winning row.
func (s *DefaultService) GetOrCreateDirect(ctx context.Context, userA, userB string) (*Conversation, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"direct conversation requires two distinct users", nil, "direct-invalid-pair")
	}

	key := DirectDedupKey(userA, userB)
	if existing, err := s.repo.FindActiveByDedupKey(ctx, key); err == nil {
		return existing, nil
	} else if !platformerrors.IsType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	publicID, err := idgen.GenerateSecureID("conv", 24)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeInternal,
			"generate conversation id", err, "direct-idgen")
	}

	conv := NewConversation(publicID, TypeDirect, userA)
	conv.Participants = []Participant{
		NewParticipant(userA, RoleAdmin),
		NewParticipant(userB, RoleAdmin),
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		if platformerrors.IsType(err, platformerrors.ErrorTypeConflict) {
			// Lost the creation race; the winning row satisfies the caller.
			return s.repo.FindActiveByDedupKey(ctx, key)
		}
		return nil, err
	}
	return conv, nil
}

// GetOrCreateContentLinked returns the active conversation rooted in the
// given posting, creating it when absent.
func (s *DefaultService) GetOrCreateContentLinked(ctx context.Context, contentID, creatorID string) (*Conversation, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"content id is required", nil, "content-missing-id")
	}

	key := ContentDedupKey(contentID)
	if existing, err := s.repo.FindActiveByDedupKey(ctx, key); err == nil {
		return existing, nil
	} else if !platformerrors.IsType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	publicID, err := idgen.GenerateSecureID("conv", 24)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeInternal,
			"generate conversation id", err, "content-idgen")
	}

	conv := NewConversation(publicID, TypeContentLinked, creatorID)
	conv.LinkedContentID = &contentID
	conv.Participants = []Participant{NewParticipant(creatorID, RoleAdmin)}

	if err := s.repo.Create(ctx, conv); err != nil {
		if platformerrors.IsType(err, platformerrors.ErrorTypeConflict) {
			return s.repo.FindActiveByDedupKey(ctx, key)
		}
		return nil, err
	}
	return conv, nil
}

// CreateGroup creates a named group conversation with the creator as admin.
func (s *DefaultService) CreateGroup(ctx context.Context, name, creatorID string, memberIDs []string) (*Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"group name is required", nil, "group-missing-name")
	}
	if len(memberIDs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"group requires at least one member", nil, "group-no-members")
	}

	members := dedupeMembers(creatorID, memberIDs)
	if len(members) > s.maxGroupSize {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"group exceeds the maximum member count", nil, "group-too-large")
	}

	publicID, err := idgen.GenerateSecureID("conv", 24)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeInternal,
			"generate conversation id", err, "group-idgen")
	}

	conv := NewConversation(publicID, TypeGroup, creatorID)
	conv.Name = &name
	conv.Participants = make([]Participant, 0, len(members))
	for _, userID := range members {
		role := RoleMember
		if userID == creatorID {
			role = RoleAdmin
		}
		conv.Participants = append(conv.Participants, NewParticipant(userID, role))
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}

	s.log.Info().Str("conversation_id", conv.PublicID).Int("members", len(members)).Msg("group conversation created")
	return conv, nil
}

// Get returns the conversation when the requester is or was a participant.
func (s *DefaultService) Get(ctx context.Context, publicID, requesterID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if conv.Participant(requesterID) == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
			"requester is not a participant", nil, "get-not-participant")
	}
	return conv, nil
}

// ListForUser returns the user's active conversations with unread counts,
// newest activity first.
func (s *DefaultService) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	return s.repo.ListForUser(ctx, userID)
}

// AddParticipant adds (or reactivates) a member. Admin only.
func (s *DefaultService) AddParticipant(ctx context.Context, publicID, actorID, userID string) error {
	conv, err := s.requireAdmin(ctx, publicID, actorID, "add-participant")
	if err != nil {
		return err
	}

	if existing := conv.Participant(userID); existing != nil {
		if existing.Active() {
			return nil
		}
		return s.participants.Reactivate(ctx, conv.ID, userID)
	}

	p := NewParticipant(userID, RoleMember)
	return s.participants.Add(ctx, conv.ID, &p)
}

// RemoveParticipant soft-removes a member by setting LeftAt. Admin only;
// message history is untouched.
func (s *DefaultService) RemoveParticipant(ctx context.Context, publicID, actorID, userID string) error {
	conv, err := s.requireAdmin(ctx, publicID, actorID, "remove-participant")
	if err != nil {
		return err
	}

	target := conv.Participant(userID)
	if target == nil || !target.Active() {
		return nil
	}
	return s.participants.SetLeftAt(ctx, conv.ID, userID, time.Now().UTC())
}

// Leave is self-removal; any active participant may leave.
func (s *DefaultService) Leave(ctx context.Context, publicID, userID string) error {
	conv, _, err := s.ActiveParticipant(ctx, publicID, userID)
	if err != nil {
		return err
	}
	return s.participants.SetLeftAt(ctx, conv.ID, userID, time.Now().UTC())
}

// SetMuted toggles notification muting for the caller's own membership.
func (s *DefaultService) SetMuted(ctx context.Context, publicID, userID string, muted bool) error {
	conv, _, err := s.ActiveParticipant(ctx, publicID, userID)
	if err != nil {
		return err
	}
	return s.participants.SetMuted(ctx, conv.ID, userID, muted)
}

// RenameGroup changes a group conversation's name. Admin only.
func (s *DefaultService) RenameGroup(ctx context.Context, publicID, actorID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"group name is required", nil, "rename-missing-name")
	}

	conv, err := s.requireAdmin(ctx, publicID, actorID, "rename-group")
	if err != nil {
		return err
	}
	if conv.Type != TypeGroup {
		return platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"only group conversations can be renamed", nil, "rename-not-group")
	}
	return s.repo.Rename(ctx, conv.ID, name)
}

// Archive marks the conversation archived, freeing its dedup key for reuse.
// Idempotent.
func (s *DefaultService) Archive(ctx context.Context, publicID string) error {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if conv.IsArchived {
		return nil
	}
	return s.repo.Archive(ctx, conv.ID, time.Now().UTC())
}

// ActiveParticipant resolves the conversation and requester membership,
// failing with ForbiddenError when the requester is not an active member.
func (s *DefaultService) ActiveParticipant(ctx context.Context, publicID, userID string) (*Conversation, *Participant, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	p := conv.Participant(userID)
	if p == nil || !p.Active() {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
			"user is not an active participant", nil, "not-active-participant")
	}
	return conv, p, nil
}

// TouchLastMessage records new activity on the conversation.
func (s *DefaultService) TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error {
	return s.repo.UpdateLastMessageAt(ctx, conversationID, at)
}

// AdvanceLastRead moves the participant's read watermark forward.
func (s *DefaultService) AdvanceLastRead(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	return s.participants.AdvanceLastRead(ctx, conversationID, userID, at)
}

func (s *DefaultService) requireAdmin(ctx context.Context, publicID, actorID, code string) (*Conversation, error) {
	conv, actor, err := s.ActiveParticipant(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleAdmin {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
			"operation requires the admin role", nil, code+"-not-admin")
	}
	return conv, nil
}

func dedupeMembers(creatorID string, memberIDs []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	members := []string{creatorID}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}
