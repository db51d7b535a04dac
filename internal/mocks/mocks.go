package mocks

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/stretchr/testify/mock"

	"signaling-service/internal/models"
	"signaling-service/internal/observability"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) FindOrCreateIndividual(ctx context.Context, userA, userB int64) (models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (models.Chat, error) {
	args := m.Called(ctx, creatorID, name, memberIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int64) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsForUser(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error) {
	args := m.Called(ctx, chatID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, chatID, senderID int64, content, contentType, fileURL string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, contentType, fileURL)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListPage(ctx context.Context, chatID int64, page, pageSize int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, page, pageSize)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, chatID, readerID int64, messageIDs []int64) (int64, error) {
	args := m.Called(ctx, chatID, readerID, messageIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) SetReaction(ctx context.Context, chatID, messageID, userID int64, reaction string) error {
	args := m.Called(ctx, chatID, messageID, userID, reaction)
	return args.Error(0)
}

type CallRepositoryMock struct {
	mock.Mock
}

func (m *CallRepositoryMock) Create(ctx context.Context, chatID, initiatorID int64, callType string) (models.Call, error) {
	args := m.Called(ctx, chatID, initiatorID, callType)
	var call models.Call
	if val := args.Get(0); val != nil {
		call = val.(models.Call)
	}
	return call, args.Error(1)
}

func (m *CallRepositoryMock) Get(ctx context.Context, chatID, callID int64) (models.Call, error) {
	args := m.Called(ctx, chatID, callID)
	var call models.Call
	if val := args.Get(0); val != nil {
		call = val.(models.Call)
	}
	return call, args.Error(1)
}

func (m *CallRepositoryMock) Respond(ctx context.Context, chatID, callID, userID int64, status string, now time.Time) (models.Call, bool, error) {
	args := m.Called(ctx, chatID, callID, userID, status, now)
	var call models.Call
	if val := args.Get(0); val != nil {
		call = val.(models.Call)
	}
	return call, args.Bool(1), args.Error(2)
}

func (m *CallRepositoryMock) Leave(ctx context.Context, chatID, callID, userID int64, now time.Time) error {
	args := m.Called(ctx, chatID, callID, userID, now)
	return args.Error(0)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) UploadFromHeader(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	args := m.Called(ctx, fileHeader, folder)
	return args.String(0), args.Error(1)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) SetOnline(userID int64)  { m.Called(userID) }
func (m *PresenceMock) SetOffline(userID int64) { m.Called(userID) }

func (m *PresenceMock) Get(ctx context.Context, userID int64) (models.Presence, error) {
	args := m.Called(ctx, userID)
	var p models.Presence
	if val := args.Get(0); val != nil {
		p = val.(models.Presence)
	}
	return p, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event observability.EventEnvelope, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
