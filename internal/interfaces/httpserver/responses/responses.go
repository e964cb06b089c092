package responses

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// HandleError renders any error as the standard envelope, mapping platform
// error types to status codes.
func HandleError(c *gin.Context, log zerolog.Logger, err error) {
	platformerrors.WriteError(c, err, log)
}

// Conversation renders one conversation.
func Conversation(conv *conversation.Conversation) map[string]any {
	return realtime.ConversationPayload(conv)
}

// ConversationList renders conversation summaries with unread counts.
func ConversationList(summaries []conversation.Summary) gin.H {
	items := make([]map[string]any, len(summaries))
	for i := range summaries {
		item := realtime.ConversationPayload(&summaries[i].Conversation)
		item["unread_count"] = summaries[i].UnreadCount
		items[i] = item
	}
	return gin.H{"conversations": items}
}

// Message renders one sanitized message.
func Message(m *message.Message) map[string]any {
	return realtime.MessagePayload(m)
}

// MessagePage renders one history page, newest first.
func MessagePage(page *message.Page) gin.H {
	items := make([]map[string]any, len(page.Messages))
	for i, m := range page.Messages {
		items[i] = realtime.MessagePayload(m)
	}
	return gin.H{
		"messages":    items,
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	}
}

// ReadState renders the outcome of a mark-read call.
func ReadState(state *message.ReadState) gin.H {
	return gin.H{
		"conversation_id":  state.ConversationPublicID,
		"user_id":          state.UserID,
		"up_to_message_id": state.UpToMessageID,
	}
}
