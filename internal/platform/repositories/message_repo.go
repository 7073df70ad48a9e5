package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, platform, platform_message_id, conversation_id, sender_id, sender_name, sender_username, recipient_id, message_type, text, media_url, mime_type, reply_to, context, status, direction, timestamp, created_at, updated_at`

func (r *MessageRepository) Create(platform models.Platform, msg *models.UnifiedMessage) (*models.UnifiedMessage, error) {
	storage.ApplyMessageDefaults(platform, msg)

	var contextJSON []byte
	if msg.Context != nil {
		var err error
		contextJSON, err = json.Marshal(msg.Context)
		if err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		msg.ID, string(msg.Platform), msg.PlatformMessageID, msg.ConversationID,
		msg.SenderID, msg.SenderName, msg.SenderUsername, msg.RecipientID,
		msg.MessageType, msg.Text, msg.MediaURL, msg.MimeType, msg.ReplyTo,
		string(contextJSON), msg.Status, msg.Direction, msg.Timestamp,
		msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateStatus advances the message status, skipping transitions that would
// regress. The status ladder is enforced in SQL so concurrent receipts for
// the same message cannot race each other backwards.
func (r *MessageRepository) UpdateStatus(platformMessageID, status string) error {
	row := r.db.QueryRow(`SELECT status FROM messages WHERE platform_message_id = ?`, platformMessageID)

	var current string
	if err := row.Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			// Receipts for messages we never stored are ignored.
			return nil
		}
		return err
	}

	if !models.CanTransition(current, status) {
		return nil
	}

	_, err := r.db.Exec(
		`UPDATE messages SET status = ?, updated_at = ? WHERE platform_message_id = ? AND status = ?`,
		status, time.Now().UTC().Format(time.RFC3339), platformMessageID, current,
	)
	return err
}

func (r *MessageRepository) GetByConversation(conversationID string) ([]*models.UnifiedMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY timestamp`
	return r.query(query, conversationID)
}

func (r *MessageRepository) GetByPlatform(platform models.Platform) ([]*models.UnifiedMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE platform = ? ORDER BY timestamp`
	return r.query(query, string(platform))
}

func (r *MessageRepository) query(query string, args ...interface{}) ([]*models.UnifiedMessage, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.UnifiedMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanMessage(rows *sql.Rows) (*models.UnifiedMessage, error) {
	var m models.UnifiedMessage
	var platform string
	var senderName, senderUsername, text, mediaURL, mimeType, replyTo, contextStr sql.NullString

	err := rows.Scan(&m.ID, &platform, &m.PlatformMessageID, &m.ConversationID,
		&m.SenderID, &senderName, &senderUsername, &m.RecipientID,
		&m.MessageType, &text, &mediaURL, &mimeType, &replyTo, &contextStr,
		&m.Status, &m.Direction, &m.Timestamp, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.Platform = models.Platform(platform)
	m.SenderName = senderName.String
	m.SenderUsername = senderUsername.String
	m.Text = text.String
	m.MediaURL = mediaURL.String
	m.MimeType = mimeType.String
	m.ReplyTo = replyTo.String
	if contextStr.Valid && contextStr.String != "" {
		json.Unmarshal([]byte(contextStr.String), &m.Context)
	}
	return &m, nil
}
