package storage

import (
	"time"

	"github.com/google/uuid"
	"omnihook/internal/platform/models"
)

// Store is the persistence collaborator the gateway normalizes into. Every
// write returns an error so handlers can surface storage failures instead of
// silently dropping them.
type Store interface {
	// StoreMessage fills in ID, timestamps and defaults for omitted optional
	// fields, then persists the message.
	StoreMessage(platform models.Platform, msg *models.UnifiedMessage) (*models.UnifiedMessage, error)
	// UpdateMessageStatus advances the status of the message identified by
	// its platform message ID. Transitions that would regress are ignored.
	UpdateMessageStatus(platformMessageID, status string) error
	// StoreEngagement validates and persists an engagement. Engagements are
	// append-only; there is no update path.
	StoreEngagement(platform models.Platform, eng *models.UnifiedEngagement) (*models.UnifiedEngagement, error)
	// RecordOptOut marks a platform user as opted out. Idempotent.
	RecordOptOut(platform models.Platform, userID string) error
	IsOptedOut(platform models.Platform, userID string) (bool, error)

	// Read paths (admin API; not used by the ingestion path).
	GetMessagesByConversation(conversationID string) ([]*models.UnifiedMessage, error)
	GetMessagesByPlatform(platform models.Platform) ([]*models.UnifiedMessage, error)
	GetEngagementsByContent(contentID string) ([]*models.UnifiedEngagement, error)
	GetEngagementsByPlatform(platform models.Platform) ([]*models.UnifiedEngagement, error)
	Stats() (*Stats, error)
}

// Stats summarizes stored records for the admin API.
type Stats struct {
	TotalMessages    int                      `json:"total_messages"`
	TotalEngagements int                      `json:"total_engagements"`
	ByPlatform       map[models.Platform]int  `json:"by_platform"`
	ByDirection      map[string]int           `json:"by_direction"`
	EngagementByType map[string]int           `json:"engagement_by_type"`
}

// ApplyMessageDefaults assigns the record identity and fills defaults the
// platform handler left unset. Called by every Store implementation inside
// StoreMessage.
func ApplyMessageDefaults(platform models.Platform, msg *models.UnifiedMessage) {
	now := time.Now().UTC().Format(time.RFC3339)
	msg.ID = uuid.New().String()
	msg.Platform = platform
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	if msg.Status == "" {
		msg.Status = models.StatusReceived
	}
	if msg.Direction == "" {
		msg.Direction = models.DirectionInbound
	}
	if msg.Timestamp == "" {
		msg.Timestamp = now
	}
	msg.CreatedAt = now
	msg.UpdatedAt = now
}

// ApplyEngagementDefaults assigns identity and timestamps for a new
// engagement record.
func ApplyEngagementDefaults(platform models.Platform, eng *models.UnifiedEngagement) {
	now := time.Now().UTC().Format(time.RFC3339)
	eng.ID = uuid.New().String()
	eng.Platform = platform
	if eng.EngagementType == "" {
		eng.EngagementType = models.EngagementComment
	}
	if eng.Timestamp == "" {
		eng.Timestamp = now
	}
	eng.CreatedAt = now
	eng.UpdatedAt = now
}
