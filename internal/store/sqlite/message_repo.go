package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"courtportal/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

// messageColumns selects message fields plus the aggregated read set.
const messageColumns = `
	m.id, m.sender_id, m.sender_role, m.receiver_id, m.group_id, m.is_broadcast,
	m.text, m.attachment_url, m.created_at, m.edited_at, m.deleted_at,
	COALESCE(GROUP_CONCAT(r.user_id), '')`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
		INSERT INTO messages (id, sender_id, sender_role, receiver_id, group_id, is_broadcast, text, attachment_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	if _, err := r.db.ExecContext(ctx, query,
		m.ID, m.SenderID, m.SenderRole, m.ReceiverID, m.GroupID, m.IsBroadcast, m.Text, m.AttachmentURL,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	// The sender has trivially read their own message.
	if err := r.AddReadBy(ctx, m.ID, m.SenderID); err != nil {
		return err
	}
	// Re-read so created_at reflects the authoritative server clock.
	stored, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	if stored != nil {
		*m = *stored
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN message_reads r ON r.message_id = m.id
		WHERE m.id = ?
		GROUP BY m.id
	`
	m := &domain.Message{}
	err := scanMessageRow(r.db.QueryRowContext(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MessageRepo) ListDirect(ctx context.Context, a, b int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN message_reads r ON r.message_id = m.id
		WHERE m.is_broadcast = 0 AND m.group_id IS NULL
		  AND ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))
		GROUP BY m.id
		ORDER BY m.created_at DESC
		LIMIT ?
	`
	return r.list(ctx, query, a, b, b, a, limit)
}

func (r *MessageRepo) ListGroup(ctx context.Context, groupID int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN message_reads r ON r.message_id = m.id
		WHERE m.group_id = ?
		GROUP BY m.id
		ORDER BY m.created_at DESC
		LIMIT ?
	`
	return r.list(ctx, query, groupID, limit)
}

func (r *MessageRepo) ListBroadcast(ctx context.Context, limit int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN message_reads r ON r.message_id = m.id
		WHERE m.is_broadcast = 1
		GROUP BY m.id
		ORDER BY m.created_at DESC
		LIMIT ?
	`
	return r.list(ctx, query, limit)
}

func (r *MessageRepo) Update(ctx context.Context, m *domain.Message) error {
	query := `
		UPDATE messages
		SET text = ?, attachment_url = ?, edited_at = ?, deleted_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, m.Text, m.AttachmentURL, m.EditedAt, m.DeletedAt, m.ID); err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (r *MessageRepo) AddReadBy(ctx context.Context, messageID string, userID int64) error {
	query := `INSERT OR IGNORE INTO message_reads (message_id, user_id) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, messageID, userID); err != nil {
		return fmt.Errorf("add read receipt: %w", err)
	}
	return nil
}

func (r *MessageRepo) MarkChannelRead(ctx context.Context, messageIDs []string, userID int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range messageIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_reads (message_id, user_id) VALUES (?, ?)`, id, userID); err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MessageRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := scanMessageRow(rows, m); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

func scanMessageRow(row rowScanner, m *domain.Message) error {
	var readBy string
	if err := row.Scan(
		&m.ID,
		&m.SenderID,
		&m.SenderRole,
		&m.ReceiverID,
		&m.GroupID,
		&m.IsBroadcast,
		&m.Text,
		&m.AttachmentURL,
		&m.CreatedAt,
		&m.EditedAt,
		&m.DeletedAt,
		&readBy,
	); err != nil {
		return fmt.Errorf("scan message: %w", err)
	}
	if readBy != "" {
		for _, part := range strings.Split(readBy, ",") {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				continue
			}
			m.ReadBy = append(m.ReadBy, id)
		}
	}
	return nil
}
