package services

import (
	"context"
	"testing"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/repository"
	"amoura-chat/internal/repository/repotest"
	apperrors "amoura-chat/pkg/errors"
	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatService() (*ChatService, *repotest.ConversationRepo, *repotest.MessageRepo) {
	convRepo := repotest.NewConversationRepo()
	msgRepo := repotest.NewMessageRepo()
	return NewChatService(convRepo, msgRepo, logger.NewNop()), convRepo, msgRepo
}

func TestCreateConversationIdempotent(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	first, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	second, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Reversed argument order must still resolve to the same row.
	third, err := svc.CreateConversation(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
}

func TestCreateConversationReactivatesArchived(t *testing.T) {
	svc, convRepo, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	require.NoError(t, svc.ArchiveConversation(ctx, alice, conv.ID))

	archived, err := convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ConversationArchived, archived.Status)

	reopened, err := svc.CreateConversation(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, reopened.ID)
	assert.Equal(t, domain.ConversationActive, reopened.Status)
}

func TestCreateConversationRejectsSelfChat(t *testing.T) {
	svc, _, _ := newTestChatService()
	alice := uuid.New()

	_, err := svc.CreateConversation(context.Background(), alice, alice)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSendMessageUpdatesCounters(t *testing.T) {
	svc, convRepo, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, bob, msg.ReceiverID)
	assert.Equal(t, domain.MessageText, msg.MessageType)

	updated, err := convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastMessageID)
	assert.Equal(t, msg.ID, *updated.LastMessageID)
	assert.Equal(t, 1, updated.User1ReadCount)
	assert.Equal(t, 1, updated.User2UnreadCount)
	assert.Equal(t, 0, updated.User2ReadCount)

	// A second message from alice keeps accumulating.
	_, err = svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "still me"})
	require.NoError(t, err)
	updated, _ = convRepo.GetByID(ctx, conv.ID)
	assert.Equal(t, 2, updated.User1ReadCount)
	assert.Equal(t, 2, updated.User2UnreadCount)
}

func TestListConversationsEmptyStatusIsUnfiltered(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	archived, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	require.NoError(t, svc.ArchiveConversation(ctx, alice, archived.ID))
	_, err = svc.CreateConversation(ctx, alice, carol)
	require.NoError(t, err)

	active, err := svc.ListConversations(ctx, alice, domain.ConversationActive, 0, 0)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := svc.ListConversations(ctx, alice, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSendMessageRoundTripsMediaAndMetadata(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	replyTo := uuid.New()
	media := &domain.MediaData{
		URL:       "https://cdn.example.com/clips/abc.mp4",
		Thumbnail: "https://cdn.example.com/clips/abc.jpg",
		Size:      2048,
		Duration:  12.5,
	}
	meta := &domain.MessageMetadata{
		ReplyTo:  &replyTo,
		Mentions: []string{bob.String()},
	}

	sent, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{
		Content:     "watch this",
		MessageType: domain.MessageVideo,
		MediaData:   media,
		Metadata:    meta,
	})
	require.NoError(t, err)

	messages, err := svc.GetMessages(ctx, bob, conv.ID, repository.MessageWindow{})
	require.NoError(t, err)
	require.Len(t, messages, 1)

	got := messages[0]
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "watch this", got.Content)
	assert.Equal(t, domain.MessageVideo, got.MessageType)
	require.NotNil(t, got.MediaData)
	assert.Equal(t, *media, *got.MediaData)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, *meta, *got.Metadata)
}

func TestSendMessageValidation(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "x", MessageType: "carrier-pigeon"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	stranger := uuid.New()
	_, err = svc.SendMessage(ctx, stranger, conv.ID, SendMessageInput{Content: "let me in"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetMessagesMarksDelivered(t *testing.T) {
	svc, _, msgRepo := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	sent, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "knock knock"})
	require.NoError(t, err)
	assert.False(t, sent.IsDelivered)

	messages, err := svc.GetMessages(ctx, bob, conv.ID, repository.MessageWindow{})
	require.NoError(t, err)
	require.Len(t, messages, 1)

	stored, err := msgRepo.GetByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDelivered)
	assert.NotNil(t, stored.DeliveredAt)

	// The sender fetching messages must not flip their own outgoing mail.
	other, err := svc.SendMessage(ctx, bob, conv.ID, SendMessageInput{Content: "who's there"})
	require.NoError(t, err)
	_, err = svc.GetMessages(ctx, bob, conv.ID, repository.MessageWindow{})
	require.NoError(t, err)
	stored, _ = msgRepo.GetByID(ctx, other.ID)
	assert.False(t, stored.IsDelivered)
}

func TestMarkMessageAsReadIdempotent(t *testing.T) {
	svc, convRepo, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "read me"})
	require.NoError(t, err)

	read, err := svc.MarkMessageAsRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	after, err := convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.User2UnreadCount)
	assert.Equal(t, 1, after.User2ReadCount)

	// A second receipt must not touch the counters again.
	_, err = svc.MarkMessageAsRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	again, _ := convRepo.GetByID(ctx, conv.ID)
	assert.Equal(t, 0, again.User2UnreadCount)
	assert.Equal(t, 1, again.User2ReadCount)
}

func TestMarkMessageAsReadOnlyReceiver(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "mine"})
	require.NoError(t, err)

	_, err = svc.MarkMessageAsRead(ctx, alice, msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeleteMessageKeepsLastPointer(t *testing.T) {
	svc, convRepo, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "oops"})
	require.NoError(t, err)

	// Only the sender may delete.
	_, err = svc.DeleteMessage(ctx, bob, msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	deleted, err := svc.DeleteMessage(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	// The conversation still points at the deleted message.
	conv2, err := convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, conv2.LastMessageID)
	assert.Equal(t, msg.ID, *conv2.LastMessageID)

	// Listings skip it.
	messages, err := svc.GetMessages(ctx, bob, conv.ID, repository.MessageWindow{})
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestListConversationsFallsBackPastDeleted(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	first, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "keep this"})
	require.NoError(t, err)
	second, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "delete this"})
	require.NoError(t, err)
	_, err = svc.DeleteMessage(ctx, alice, second.ID)
	require.NoError(t, err)

	items, err := svc.ListConversations(ctx, alice, domain.ConversationActive, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].LastMessage)
	assert.Equal(t, first.ID, items[0].LastMessage.ID)
}

func TestGetUnreadCountAcrossConversations(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	convAB, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	convCB, err := svc.CreateConversation(ctx, carol, bob)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice, convAB.ID, SendMessageInput{Content: "one"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice, convAB.ID, SendMessageInput{Content: "two"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, carol, convCB.ID, SendMessageInput{Content: "three"})
	require.NoError(t, err)

	count, err := svc.GetUnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = svc.GetUnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUpdateTypingStatus(t *testing.T) {
	svc, convRepo, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTypingStatus(ctx, bob, conv.ID, true))
	updated, _ := convRepo.GetByID(ctx, conv.ID)
	assert.False(t, updated.IsTypingUser1)
	assert.True(t, updated.IsTypingUser2)

	require.NoError(t, svc.UpdateTypingStatus(ctx, bob, conv.ID, false))
	updated, _ = convRepo.GetByID(ctx, conv.ID)
	assert.False(t, updated.IsTypingUser2)
}

func TestSearchMessages(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "Pizza tonight?"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, bob, conv.ID, SendMessageInput{Content: "I prefer sushi"})
	require.NoError(t, err)

	hits, err := svc.SearchMessages(ctx, alice, conv.ID, "pizza", 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "Pizza")

	_, err = svc.SearchMessages(ctx, alice, conv.ID, "  ", 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.SearchMessages(ctx, uuid.New(), conv.ID, "pizza", 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetConversationStats(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "first"})
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, alice, conv.ID, SendMessageInput{Content: "second"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateTypingStatus(ctx, alice, conv.ID, true))

	stats, err := svc.GetConversationStats(ctx, bob, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.MessageCount)
	require.NotNil(t, stats.LastMessageAt)
	assert.Equal(t, msg.CreatedAt, *stats.LastMessageAt)
	assert.True(t, stats.TypingStatus.User1Typing)
	assert.Equal(t, 2, stats.Stats.User2.UnreadCount)
}

func TestAccessDeniedAndMissingAreDistinctInternally(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	conv, err := svc.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	_, err = svc.GetConversation(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetConversation(ctx, uuid.New(), conv.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
