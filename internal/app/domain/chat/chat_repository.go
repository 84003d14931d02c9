package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
	database "github.com/FACorreiaa/fogline/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the contract for chat persistence.
type Repository interface {
	// CreateRoom inserts the room and its member list (creator included) in
	// one transaction.
	CreateRoom(ctx context.Context, creatorID uuid.UUID, name string, isGroup bool, memberIDs []uuid.UUID) (*models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	SaveMessage(ctx context.Context, msg models.SendMessageRequest, senderID uuid.UUID, body string) (*models.Message, error)
	// ListMessages returns the newest messages first.
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGXPool
}

func NewRepositoryImpl(pgpool database.PGXPool, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) CreateRoom(ctx context.Context, creatorID uuid.UUID, name string, isGroup bool, memberIDs []uuid.UUID) (*models.ChatRoom, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "CreateRoom", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_rooms"),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "CreateRoom"), zap.String("creatorID", creatorID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "BEGIN failed")
		return nil, fmt.Errorf("database error creating room: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var room models.ChatRoom
	err = tx.QueryRow(ctx, `
        INSERT INTO chat_rooms (name, is_group)
        VALUES ($1, $2)
        RETURNING id, name, is_group, created_at`,
		name, isGroup).Scan(&room.ID, &room.Name, &room.IsGroup, &room.CreatedAt)
	if err != nil {
		l.Error("Failed to insert room", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating room: %w", err)
	}

	members := append([]uuid.UUID{creatorID}, memberIDs...)
	for _, memberID := range members {
		_, err = tx.Exec(ctx, `
            INSERT INTO chat_room_members (room_id, user_id)
            VALUES ($1, $2)
            ON CONFLICT DO NOTHING`, room.ID, memberID)
		if err != nil {
			l.Error("Failed to insert room member",
				zap.String("memberID", memberID.String()), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Member INSERT failed")
			return nil, fmt.Errorf("database error adding room member: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "COMMIT failed")
		return nil, fmt.Errorf("database error creating room: %w", err)
	}

	l.Info("Room created", zap.String("roomID", room.ID.String()), zap.Int("members", len(members)))
	span.SetStatus(codes.Ok, "Room created")
	return &room, nil
}

func (r *RepositoryImpl) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "ListRoomsForUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chat_rooms"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT cr.id, cr.name, cr.is_group, cr.created_at
        FROM chat_rooms cr
        JOIN chat_room_members m ON m.room_id = cr.id
        WHERE m.user_id = $1
        ORDER BY cr.created_at DESC`, userID)
	if err != nil {
		r.logger.Error("Failed to query rooms", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.ChatRoom
	for rows.Next() {
		var room models.ChatRoom
		if err := rows.Scan(&room.ID, &room.Name, &room.IsGroup, &room.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading rooms: %w", err)
	}

	span.SetStatus(codes.Ok, "Rooms fetched")
	return rooms, nil
}

func (r *RepositoryImpl) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "IsMember", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chat_room_members"),
	))
	defer span.End()

	var member bool
	err := r.pgpool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM chat_room_members
            WHERE room_id = $1 AND user_id = $2
        )`, roomID, userID).Scan(&member)
	if err != nil {
		r.logger.Error("Failed to check room membership", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking membership: %w", err)
	}

	span.SetStatus(codes.Ok, "Membership checked")
	return member, nil
}

func (r *RepositoryImpl) SaveMessage(ctx context.Context, msg models.SendMessageRequest, senderID uuid.UUID, body string) (*models.Message, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "SaveMessage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "messages"),
	))
	defer span.End()

	var saved models.Message
	err := r.pgpool.QueryRow(ctx, `
        INSERT INTO messages (room_id, sender_id, body, attachment_url, attachment_type)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, room_id, sender_id, body, attachment_url, attachment_type, created_at`,
		msg.RoomID, senderID, body, msg.AttachmentURL, msg.AttachmentType).Scan(
		&saved.ID, &saved.RoomID, &saved.SenderID, &saved.Body,
		&saved.AttachmentURL, &saved.AttachmentType, &saved.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert message", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error saving message: %w", err)
	}

	span.SetStatus(codes.Ok, "Message saved")
	return &saved, nil
}

func (r *RepositoryImpl) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "ListMessages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "messages"),
	))
	defer span.End()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, room_id, sender_id, body, attachment_url, attachment_type, created_at
        FROM messages
        WHERE room_id = $1
        ORDER BY created_at DESC
        LIMIT $2`, roomID, limit)
	if err != nil {
		r.logger.Error("Failed to query messages", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body,
			&m.AttachmentURL, &m.AttachmentType, &m.CreatedAt)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading messages: %w", err)
	}

	span.SetStatus(codes.Ok, "Messages fetched")
	return msgs, nil
}
