package repositories

import (
	"database/sql"
	"time"

	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

type EngagementRepository struct {
	db *sql.DB
}

func NewEngagementRepository(db *sql.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

const engagementColumns = `id, platform, platform_engagement_id, engagement_type, content_id, content_type, user_id, username, text, reaction, rating, parent_id, timestamp, created_at, updated_at`

func (r *EngagementRepository) Create(platform models.Platform, eng *models.UnifiedEngagement) (*models.UnifiedEngagement, error) {
	storage.ApplyEngagementDefaults(platform, eng)
	if err := eng.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO engagements (` + engagementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		eng.ID, string(eng.Platform), eng.PlatformEngagementID, eng.EngagementType,
		eng.ContentID, eng.ContentType, eng.UserID, eng.Username,
		eng.Text, eng.Reaction, eng.Rating, eng.ParentID,
		eng.Timestamp, eng.CreatedAt, eng.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

func (r *EngagementRepository) GetByContent(contentID string) ([]*models.UnifiedEngagement, error) {
	query := `SELECT ` + engagementColumns + ` FROM engagements WHERE content_id = ? ORDER BY timestamp`
	return r.query(query, contentID)
}

func (r *EngagementRepository) GetByPlatform(platform models.Platform) ([]*models.UnifiedEngagement, error) {
	query := `SELECT ` + engagementColumns + ` FROM engagements WHERE platform = ? ORDER BY timestamp`
	return r.query(query, string(platform))
}

func (r *EngagementRepository) query(query string, args ...interface{}) ([]*models.UnifiedEngagement, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var engagements []*models.UnifiedEngagement
	for rows.Next() {
		var e models.UnifiedEngagement
		var platform string
		var contentType, username, text, reaction, parentID sql.NullString
		var rating sql.NullInt64

		err := rows.Scan(&e.ID, &platform, &e.PlatformEngagementID, &e.EngagementType,
			&e.ContentID, &contentType, &e.UserID, &username,
			&text, &reaction, &rating, &parentID,
			&e.Timestamp, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}

		e.Platform = models.Platform(platform)
		e.ContentType = contentType.String
		e.Username = username.String
		e.Text = text.String
		e.Reaction = reaction.String
		e.Rating = int(rating.Int64)
		e.ParentID = parentID.String
		engagements = append(engagements, &e)
	}
	return engagements, rows.Err()
}

type OptOutRepository struct {
	db *sql.DB
}

func NewOptOutRepository(db *sql.DB) *OptOutRepository {
	return &OptOutRepository{db: db}
}

func (r *OptOutRepository) Record(platform models.Platform, userID string) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO opt_outs (platform, user_id, created_at) VALUES (?, ?, ?)`,
		string(platform), userID, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (r *OptOutRepository) Exists(platform models.Platform, userID string) (bool, error) {
	row := r.db.QueryRow(`SELECT 1 FROM opt_outs WHERE platform = ? AND user_id = ?`, string(platform), userID)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
