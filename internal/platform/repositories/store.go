package repositories

import (
	"database/sql"

	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

// SQLStore implements storage.Store on top of sqlite.
type SQLStore struct {
	db          *sql.DB
	messages    *MessageRepository
	engagements *EngagementRepository
	optOuts     *OptOutRepository
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:          db,
		messages:    NewMessageRepository(db),
		engagements: NewEngagementRepository(db),
		optOuts:     NewOptOutRepository(db),
	}
}

func (s *SQLStore) StoreMessage(platform models.Platform, msg *models.UnifiedMessage) (*models.UnifiedMessage, error) {
	return s.messages.Create(platform, msg)
}

func (s *SQLStore) UpdateMessageStatus(platformMessageID, status string) error {
	return s.messages.UpdateStatus(platformMessageID, status)
}

func (s *SQLStore) StoreEngagement(platform models.Platform, eng *models.UnifiedEngagement) (*models.UnifiedEngagement, error) {
	return s.engagements.Create(platform, eng)
}

func (s *SQLStore) RecordOptOut(platform models.Platform, userID string) error {
	return s.optOuts.Record(platform, userID)
}

func (s *SQLStore) IsOptedOut(platform models.Platform, userID string) (bool, error) {
	return s.optOuts.Exists(platform, userID)
}

func (s *SQLStore) GetMessagesByConversation(conversationID string) ([]*models.UnifiedMessage, error) {
	return s.messages.GetByConversation(conversationID)
}

func (s *SQLStore) GetMessagesByPlatform(platform models.Platform) ([]*models.UnifiedMessage, error) {
	return s.messages.GetByPlatform(platform)
}

func (s *SQLStore) GetEngagementsByContent(contentID string) ([]*models.UnifiedEngagement, error) {
	return s.engagements.GetByContent(contentID)
}

func (s *SQLStore) GetEngagementsByPlatform(platform models.Platform) ([]*models.UnifiedEngagement, error) {
	return s.engagements.GetByPlatform(platform)
}

func (s *SQLStore) Stats() (*storage.Stats, error) {
	stats := &storage.Stats{
		ByPlatform:       make(map[models.Platform]int),
		ByDirection:      make(map[string]int),
		EngagementByType: make(map[string]int),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&stats.TotalMessages); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM engagements`).Scan(&stats.TotalEngagements); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT platform, COUNT(*) FROM messages GROUP BY platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, err
		}
		stats.ByPlatform[models.Platform(platform)] = count
	}

	dirRows, err := s.db.Query(`SELECT direction, COUNT(*) FROM messages GROUP BY direction`)
	if err != nil {
		return nil, err
	}
	defer dirRows.Close()
	for dirRows.Next() {
		var direction string
		var count int
		if err := dirRows.Scan(&direction, &count); err != nil {
			return nil, err
		}
		stats.ByDirection[direction] = count
	}

	typeRows, err := s.db.Query(`SELECT engagement_type, COUNT(*) FROM engagements GROUP BY engagement_type`)
	if err != nil {
		return nil, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var engagementType string
		var count int
		if err := typeRows.Scan(&engagementType, &count); err != nil {
			return nil, err
		}
		stats.EngagementByType[engagementType] = count
	}

	return stats, nil
}
