package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
)

type MockChatRepo struct {
	mock.Mock
}

func (m *MockChatRepo) CreateRoom(ctx context.Context, creatorID uuid.UUID, name string, isGroup bool, memberIDs []uuid.UUID) (*models.ChatRoom, error) {
	args := m.Called(ctx, creatorID, name, isGroup, memberIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockChatRepo) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatRoom), args.Error(1)
}

func (m *MockChatRepo) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepo) SaveMessage(ctx context.Context, msg models.SendMessageRequest, senderID uuid.UUID, body string) (*models.Message, error) {
	args := m.Called(ctx, msg, senderID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockChatRepo) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) CreateRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, requesterID, addresseeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepo) Approve(ctx context.Context, connectionID, approverID uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, connectionID, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepo) IsMutuallyAccepted(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectionRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Connection), args.Error(1)
}

func newChatService(repo *MockChatRepo, connRepo *MockConnectionRepo) (*ServiceImpl, *Hub) {
	hub := NewHub(zap.NewNop())
	moderator := NewModerator([]string{"seed phrase"})
	return NewService(repo, connRepo, hub, moderator, zap.NewNop()), hub
}

func TestCreateRoom_RequiresAcceptedConnections(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, _ := newChatService(repo, connRepo)
	creator, stranger := uuid.New(), uuid.New()

	connRepo.On("IsMutuallyAccepted", mock.Anything, creator, stranger).Return(false, nil)

	_, err := service.CreateRoom(context.Background(), creator, models.CreateRoomRequest{
		Name:      "supply run",
		MemberIDs: []uuid.UUID{stranger},
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, err, models.ErrNotConnected)
	repo.AssertNotCalled(t, "CreateRoom")
}

func TestCreateRoom_WithConnectedMembers(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, _ := newChatService(repo, connRepo)
	creator, friend := uuid.New(), uuid.New()

	connRepo.On("IsMutuallyAccepted", mock.Anything, creator, friend).Return(true, nil)
	repo.On("CreateRoom", mock.Anything, creator, "supply run", true, []uuid.UUID{friend}).
		Return(&models.ChatRoom{ID: uuid.New(), Name: "supply run", IsGroup: true}, nil)

	room, err := service.CreateRoom(context.Background(), creator, models.CreateRoomRequest{
		Name:      "  supply run ",
		IsGroup:   true,
		MemberIDs: []uuid.UUID{friend},
	})
	require.NoError(t, err)
	assert.Equal(t, "supply run", room.Name)
	repo.AssertExpectations(t)
}

func TestSendMessage_RejectsNonMembers(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, _ := newChatService(repo, connRepo)
	sender, roomID := uuid.New(), uuid.New()

	repo.On("IsMember", mock.Anything, roomID, sender).Return(false, nil)

	_, err := service.SendMessage(context.Background(), sender, models.SendMessageRequest{
		RoomID: roomID,
		Body:   "hello",
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
	repo.AssertNotCalled(t, "SaveMessage")
}

func TestSendMessage_ModeratesAndBroadcasts(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, hub := newChatService(repo, connRepo)
	sender, roomID := uuid.New(), uuid.New()

	sub := hub.Subscribe(roomID.String(), "listener")
	defer hub.Unsubscribe(roomID.String(), sub)

	req := models.SendMessageRequest{RoomID: roomID, Body: "share your seed phrase"}
	redacted := "share your ***********"

	repo.On("IsMember", mock.Anything, roomID, sender).Return(true, nil)
	repo.On("SaveMessage", mock.Anything, req, sender, redacted).
		Return(&models.Message{ID: uuid.New(), RoomID: roomID, SenderID: sender, Body: redacted}, nil)

	msg, err := service.SendMessage(context.Background(), sender, req)
	require.NoError(t, err)
	assert.Equal(t, redacted, msg.Body)

	var broadcast models.Message
	require.NoError(t, json.Unmarshal(<-sub.C, &broadcast))
	assert.Equal(t, msg.ID, broadcast.ID)
	assert.Equal(t, redacted, broadcast.Body)
}

func TestSendMessage_RejectsEmptyBody(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, _ := newChatService(repo, connRepo)

	_, err := service.SendMessage(context.Background(), uuid.New(), models.SendMessageRequest{
		RoomID: uuid.New(),
		Body:   "   ",
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestHistory_MembersOnly(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, _ := newChatService(repo, connRepo)
	userID, roomID := uuid.New(), uuid.New()

	repo.On("IsMember", mock.Anything, roomID, userID).Return(false, nil)

	_, err := service.History(context.Background(), userID, roomID, 50)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestTopRooms_ComesFromHub(t *testing.T) {
	repo := new(MockChatRepo)
	connRepo := new(MockConnectionRepo)
	service, hub := newChatService(repo, connRepo)

	hub.Subscribe("r1", "u1")
	hub.Subscribe("r1", "u2")
	hub.Subscribe("r2", "u3")

	stats := service.TopRooms(5)
	require.Len(t, stats, 2)
	assert.Equal(t, "r1", stats[0].RoomID)
	assert.Equal(t, 2, stats[0].Subscribers)
}
