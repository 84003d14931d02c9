package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/fogline/internal/app/domain/connections"
	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for rooms and fan-out.
type Service interface {
	// CreateRoom requires every invited member to hold an accepted
	// connection with the creator.
	CreateRoom(ctx context.Context, creatorID uuid.UUID, req models.CreateRoomRequest) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error)
	// SendMessage persists the (moderated) message and broadcasts it to live
	// subscribers, best effort.
	SendMessage(ctx context.Context, senderID uuid.UUID, req models.SendMessageRequest) (*models.Message, error)
	History(ctx context.Context, userID, roomID uuid.UUID, limit int) ([]models.Message, error)
	// IsMember gates websocket joins.
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	TopRooms(n int) []models.RoomStat
}

type ServiceImpl struct {
	logger      *zap.Logger
	repo        Repository
	connections connections.Repository
	hub         *Hub
	moderator   *Moderator
}

func NewService(repo Repository, connRepo connections.Repository, hub *Hub, moderator *Moderator, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		connections: connRepo,
		hub:         hub,
		moderator:   moderator,
	}
}

func (s *ServiceImpl) CreateRoom(ctx context.Context, creatorID uuid.UUID, req models.CreateRoomRequest) (*models.ChatRoom, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "CreateRoom", trace.WithAttributes(
		attribute.String("user.id", creatorID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "CreateRoom"), zap.String("creatorID", creatorID.String()))

	name := strings.TrimSpace(norm.NFC.String(req.Name))
	if name == "" {
		span.SetStatus(codes.Error, "Empty room name")
		return nil, fmt.Errorf("room name cannot be empty: %w", models.ErrValidation)
	}

	for _, memberID := range req.MemberIDs {
		if memberID == creatorID {
			continue
		}
		accepted, err := s.connections.IsMutuallyAccepted(ctx, creatorID, memberID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Connection check failed")
			return nil, err
		}
		if !accepted {
			span.SetStatus(codes.Error, "Member not connected")
			return nil, fmt.Errorf("member %s is not a connection: %w: %w",
				memberID.String(), models.ErrForbidden, models.ErrNotConnected)
		}
	}

	room, err := s.repo.CreateRoom(ctx, creatorID, name, req.IsGroup, req.MemberIDs)
	if err != nil {
		l.Error("Failed to create room", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room creation failed")
		return nil, err
	}

	l.Info("Room created", zap.String("roomID", room.ID.String()))
	span.SetStatus(codes.Ok, "Room created")
	return room, nil
}

func (s *ServiceImpl) ListRooms(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ListRooms", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	rooms, err := s.repo.ListRoomsForUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Rooms listed")
	return rooms, nil
}

func (s *ServiceImpl) SendMessage(ctx context.Context, senderID uuid.UUID, req models.SendMessageRequest) (*models.Message, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "SendMessage", trace.WithAttributes(
		attribute.String("user.id", senderID.String()),
		attribute.String("room.id", req.RoomID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "SendMessage"),
		zap.String("senderID", senderID.String()), zap.String("roomID", req.RoomID.String()))

	body := strings.TrimSpace(norm.NFC.String(req.Body))
	if body == "" {
		span.SetStatus(codes.Error, "Empty body")
		return nil, fmt.Errorf("message body cannot be empty: %w", models.ErrValidation)
	}

	member, err := s.repo.IsMember(ctx, req.RoomID, senderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Membership check failed")
		return nil, err
	}
	if !member {
		span.SetStatus(codes.Error, "Sender not a member")
		return nil, fmt.Errorf("sender is not a room member: %w", models.ErrForbidden)
	}

	body = s.moderator.Redact(body)

	msg, err := s.repo.SaveMessage(ctx, req, senderID, body)
	if err != nil {
		l.Error("Failed to save message", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		return nil, err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		l.Error("Failed to marshal message for broadcast", zap.Error(err))
		span.RecordError(err)
		return msg, nil
	}
	delivered := s.hub.Publish(msg.RoomID.String(), payload)

	metrics.Get().ChatBroadcastsTotal.Add(ctx, 1)
	l.Debug("Message broadcast", zap.Int("delivered", delivered))
	span.SetAttributes(attribute.Int("chat.delivered", delivered))
	span.SetStatus(codes.Ok, "Message sent")
	return msg, nil
}

func (s *ServiceImpl) History(ctx context.Context, userID, roomID uuid.UUID, limit int) ([]models.Message, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "History", trace.WithAttributes(
		attribute.String("room.id", roomID.String()),
	))
	defer span.End()

	member, err := s.repo.IsMember(ctx, roomID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Membership check failed")
		return nil, err
	}
	if !member {
		span.SetStatus(codes.Error, "Not a member")
		return nil, fmt.Errorf("caller is not a room member: %w", models.ErrForbidden)
	}

	msgs, err := s.repo.ListMessages(ctx, roomID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "History fetch failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "History fetched")
	return msgs, nil
}

func (s *ServiceImpl) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return s.repo.IsMember(ctx, roomID, userID)
}

func (s *ServiceImpl) TopRooms(n int) []models.RoomStat {
	return s.hub.TopRooms(n)
}
