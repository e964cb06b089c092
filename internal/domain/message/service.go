package message

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/idgen"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// Actor identifies who is performing a mutation. Moderator is resolved from
// the authentication collaborator's claims.
type Actor struct {
	UserID    string
	Moderator bool
}

// Service defines message lifecycle operations.
type Service interface {
	Send(ctx context.Context, params SendParams) (*Message, error)
	Edit(ctx context.Context, messageID string, editorID, newContent string) (*Message, error)
	SoftDelete(ctx context.Context, messageID string, actor Actor) (*Message, error)
	Forward(ctx context.Context, messageID, targetConversationID, forwarderID string) (*Message, error)
	React(ctx context.Context, messageID, userID, emoji string) (*Message, error)
	Unreact(ctx context.Context, messageID, userID, emoji string) (*Message, error)
	MarkRead(ctx context.Context, conversationID, userID, upToMessageID string) (*ReadState, error)
	ListHistory(ctx context.Context, conversationID, requesterID, cursor string, pageSize int) (*Page, error)
}

// DefaultService implements Service.
type DefaultService struct {
	repo          Repository
	conversations conversation.Service
	outbox        ModerationOutbox
	retryBackoff  time.Duration
	defaultPage   int
	maxPage       int
	log           zerolog.Logger
}

// NewService creates a message service.
func NewService(
	repo Repository,
	conversations conversation.Service,
	outbox ModerationOutbox,
	defaultPage, maxPage int,
	log zerolog.Logger,
) *DefaultService {
	return &DefaultService{
		repo:          repo,
		conversations: conversations,
		outbox:        outbox,
		retryBackoff:  250 * time.Millisecond,
		defaultPage:   defaultPage,
		maxPage:       maxPage,
		log:           log.With().Str("component", "message-service").Logger(),
	}
}

// Send validates membership and reply linkage, persists the message and
// advances the conversation's last_message_at. The returned message carries
// the database-assigned id and timestamp that broadcast consumers rely on
// for ordering.
func (s *DefaultService) Send(ctx context.Context, params SendParams) (*Message, error) {
	if params.Type == "" {
		params.Type = TypeText
	}
	if params.Type == TypeText && strings.TrimSpace(params.Content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"text message content is empty", nil, "send-empty-content")
	}

	conv, _, err := s.conversations.ActiveParticipant(ctx, params.ConversationID, params.SenderID)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ConversationID:       conv.ID,
		ConversationPublicID: conv.PublicID,
		SenderID:             params.SenderID,
		Content:              params.Content,
		Type:                 params.Type,
		MediaURL:             params.MediaURL,
		MediaMetadata:        params.MediaMetadata,
		EncryptionKeyRef:     params.EncryptionRef,
		IsSystem:             params.Type == TypeSystem,
	}

	if params.ReplyToID != nil && *params.ReplyToID != "" {
		target, err := s.repo.FindByPublicID(ctx, *params.ReplyToID)
		if err != nil {
			return nil, err
		}
		if target.ConversationID != conv.ID {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
				"reply target belongs to a different conversation", nil, "send-reply-cross-conversation")
		}
		msg.ReplyToID = &target.ID
		msg.ReplyToPublicID = &target.PublicID
		msg.ReplyPreview = &ReplyPreview{
			PublicID: target.PublicID,
			SenderID: target.SenderID,
			Content:  target.Content,
			Deleted:  target.Deleted(),
		}
	}

	msg.PublicID, err = idgen.GenerateSecureID("msg", 24)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeInternal,
			"generate message id", err, "send-idgen")
	}

	if err := s.withRetry(ctx, func() error { return s.repo.Create(ctx, msg) }); err != nil {
		return nil, err
	}

	if err := s.conversations.TouchLastMessage(ctx, conv.ID, msg.CreatedAt); err != nil {
		// Ordering metadata only; the message itself is already durable.
		s.log.Error().Err(err).Str("conversation_id", conv.PublicID).Msg("advance last_message_at failed")
	}
	return msg.Sanitized(), nil
}

// Edit updates message content. Only the original sender may edit, and a
// deleted message is immutable.
func (s *DefaultService) Edit(ctx context.Context, messageID, editorID, newContent string) (*Message, error) {
	if strings.TrimSpace(newContent) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"edited content is empty", nil, "edit-empty-content")
	}

	msg, err := s.repo.FindByPublicID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
			"only the sender may edit a message", nil, "edit-not-sender")
	}
	if msg.Deleted() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
			"deleted messages cannot be edited", nil, "edit-deleted")
	}

	now := time.Now().UTC()
	if err := s.withRetry(ctx, func() error { return s.repo.SetEdited(ctx, msg.ID, newContent, now) }); err != nil {
		return nil, err
	}

	msg.Content = newContent
	msg.EditedAt = &now
	return msg.Sanitized(), nil
}

// SoftDelete marks the message deleted. The sender or a moderator may
// delete; content is retained in storage but redacted for all consumers.
// Moderator deletions are recorded in the moderation outbox for asynchronous
// notification of the posting/moderation collaborator.
func (s *DefaultService) SoftDelete(ctx context.Context, messageID string, actor Actor) (*Message, error) {
	msg, err := s.repo.FindByPublicID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actor.UserID && !actor.Moderator {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeForbidden,
			"only the sender or a moderator may delete a message", nil, "delete-not-allowed")
	}
	if msg.Deleted() {
		return msg.Sanitized(), nil
	}

	now := time.Now().UTC()
	if err := s.withRetry(ctx, func() error { return s.repo.SetDeleted(ctx, msg.ID, now) }); err != nil {
		return nil, err
	}

	if actor.Moderator && s.outbox != nil {
		if err := s.outbox.EnqueueDeletion(ctx, msg.PublicID, msg.ConversationPublicID, actor.UserID); err != nil {
			// Delivery is best-effort here; the deletion itself already committed.
			s.log.Error().Err(err).Str("message_id", msg.PublicID).Msg("enqueue moderation event failed")
		}
	}

	msg.DeletedAt = &now
	return msg.Sanitized(), nil
}

// Forward copies the source message into the target conversation with a
// forward marker. The forwarder must be an active participant on both sides.
// The copy is independent: later deletion of the source leaves it intact.
func (s *DefaultService) Forward(ctx context.Context, messageID, targetConversationID, forwarderID string) (*Message, error) {
	src, err := s.repo.FindByPublicID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if src.Deleted() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"deleted messages cannot be forwarded", nil, "forward-deleted")
	}

	if _, _, err := s.conversations.ActiveParticipant(ctx, src.ConversationPublicID, forwarderID); err != nil {
		return nil, err
	}

	metadata := make(map[string]any, len(src.MediaMetadata)+1)
	for k, v := range src.MediaMetadata {
		metadata[k] = v
	}
	metadata[ForwardMarkerKey] = src.PublicID

	return s.Send(ctx, SendParams{
		ConversationID: targetConversationID,
		SenderID:       forwarderID,
		Content:        src.Content,
		Type:           src.Type,
		MediaURL:       src.MediaURL,
		MediaMetadata:  metadata,
		EncryptionRef:  src.EncryptionKeyRef,
	})
}

// React adds a reaction; duplicate (message, user, emoji) triples are no-ops.
func (s *DefaultService) React(ctx context.Context, messageID, userID, emoji string) (*Message, error) {
	if strings.TrimSpace(emoji) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"emoji is required", nil, "react-missing-emoji")
	}

	msg, err := s.requireMessageAccess(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	r := &Reaction{MessageID: msg.ID, UserID: userID, Emoji: emoji, CreatedAt: time.Now().UTC()}
	if err := s.withRetry(ctx, func() error { return s.repo.AddReaction(ctx, r) }); err != nil {
		return nil, err
	}
	return s.reloadReactions(ctx, msg)
}

// Unreact removes a reaction; removing an absent reaction is a no-op.
func (s *DefaultService) Unreact(ctx context.Context, messageID, userID, emoji string) (*Message, error) {
	msg, err := s.requireMessageAccess(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.withRetry(ctx, func() error { return s.repo.RemoveReaction(ctx, msg.ID, userID, emoji) }); err != nil {
		return nil, err
	}
	return s.reloadReactions(ctx, msg)
}

// MarkRead inserts receipts for all unread messages up to and including
// upToMessageID and advances the participant's last_read_at. Idempotent
// under replay: duplicate receipts are skipped and last_read_at never moves
// backwards.
func (s *DefaultService) MarkRead(ctx context.Context, conversationID, userID, upToMessageID string) (*ReadState, error) {
	conv, _, err := s.conversations.ActiveParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	upTo, err := s.repo.FindByPublicID(ctx, upToMessageID)
	if err != nil {
		return nil, err
	}
	if upTo.ConversationID != conv.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
			"message belongs to a different conversation", nil, "markread-cross-conversation")
	}

	if err := s.withRetry(ctx, func() error { return s.repo.InsertReceipts(ctx, conv.ID, userID, upTo) }); err != nil {
		return nil, err
	}
	if err := s.conversations.AdvanceLastRead(ctx, conv.ID, userID, upTo.CreatedAt); err != nil {
		return nil, err
	}

	return &ReadState{
		ConversationPublicID: conv.PublicID,
		UserID:               userID,
		UpToMessageID:        upTo.PublicID,
		LastReadAt:           upTo.CreatedAt,
	}, nil
}

// ListHistory pages through a conversation newest-first. Past participants
// (left_at set) retain read access to the history they were part of.
func (s *DefaultService) ListHistory(ctx context.Context, conversationID, requesterID, cursor string, pageSize int) (*Page, error) {
	conv, err := s.conversations.Get(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = s.defaultPage
	}
	if pageSize > s.maxPage {
		pageSize = s.maxPage
	}

	var cur *Cursor
	if cursor != "" {
		cur, err = DecodeCursor(cursor)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerService, platformerrors.ErrorTypeValidation,
				"malformed history cursor", err, "history-bad-cursor")
		}
	}

	msgs, err := s.repo.ListPage(ctx, conv.ID, cur, pageSize+1)
	if err != nil {
		return nil, err
	}

	page := &Page{HasMore: len(msgs) > pageSize}
	if page.HasMore {
		msgs = msgs[:pageSize]
	}
	page.Messages = make([]*Message, len(msgs))
	for i, m := range msgs {
		page.Messages[i] = m.Sanitized()
	}
	if page.HasMore && len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		page.NextCursor = EncodeCursor(&Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *DefaultService) requireMessageAccess(ctx context.Context, messageID, userID string) (*Message, error) {
	msg, err := s.repo.FindByPublicID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.conversations.ActiveParticipant(ctx, msg.ConversationPublicID, userID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *DefaultService) reloadReactions(ctx context.Context, msg *Message) (*Message, error) {
	reactions, err := s.repo.ListReactions(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	msg.Reactions = reactions
	return msg.Sanitized(), nil
}

// withRetry retries a storage operation once with a short backoff when the
// failure is transient.
func (s *DefaultService) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !platformerrors.IsRetryable(err) {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(s.retryBackoff):
	}
	return op()
}

// EncodeCursor serializes a history cursor.
func EncodeCursor(c *Cursor) string {
	return fmt.Sprintf("%d_%d", c.CreatedAt.UnixNano(), c.ID)
}

// DecodeCursor parses a history cursor produced by EncodeCursor.
func DecodeCursor(raw string) (*Cursor, error) {
	parts := strings.SplitN(raw, "_", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("cursor %q: want <nanos>_<id>", raw)
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: uint(id)}, nil
}
