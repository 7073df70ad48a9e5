package storage

import (
	"sync"
	"time"

	"omnihook/internal/platform/models"
)

// MemoryStore is the default in-process Store. It is safe for concurrent use
// by the hosting HTTP layer.
type MemoryStore struct {
	mu          sync.RWMutex
	messages    []*models.UnifiedMessage
	engagements []*models.UnifiedEngagement
	optOuts     map[string]models.OptOut // key: platform + "/" + userID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		optOuts: make(map[string]models.OptOut),
	}
}

func (s *MemoryStore) StoreMessage(platform models.Platform, msg *models.UnifiedMessage) (*models.UnifiedMessage, error) {
	ApplyMessageDefaults(platform, msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *msg
	s.messages = append(s.messages, &stored)
	// The caller gets its own copy so later status updates under the lock
	// cannot race reads of the returned record.
	out := stored
	return &out, nil
}

func (s *MemoryStore) UpdateMessageStatus(platformMessageID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.PlatformMessageID != platformMessageID {
			continue
		}
		if !models.CanTransition(m.Status, status) {
			// Out-of-order receipts are expected; keep the further state.
			return nil
		}
		m.Status = status
		m.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		return nil
	}
	// Status updates can arrive for messages this process never saw
	// (outbound sends from another system). Not an error.
	return nil
}

func (s *MemoryStore) StoreEngagement(platform models.Platform, eng *models.UnifiedEngagement) (*models.UnifiedEngagement, error) {
	ApplyEngagementDefaults(platform, eng)
	if err := eng.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *eng
	s.engagements = append(s.engagements, &stored)
	return &stored, nil
}

func (s *MemoryStore) RecordOptOut(platform models.Platform, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(platform) + "/" + userID
	if _, exists := s.optOuts[key]; exists {
		return nil
	}
	s.optOuts[key] = models.OptOut{
		Platform:  platform,
		UserID:    userID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return nil
}

func (s *MemoryStore) IsOptedOut(platform models.Platform, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.optOuts[string(platform)+"/"+userID]
	return ok, nil
}

func (s *MemoryStore) GetMessagesByConversation(conversationID string) ([]*models.UnifiedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.UnifiedMessage
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetMessagesByPlatform(platform models.Platform) ([]*models.UnifiedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.UnifiedMessage
	for _, m := range s.messages {
		if m.Platform == platform {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetEngagementsByContent(contentID string) ([]*models.UnifiedEngagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.UnifiedEngagement
	for _, e := range s.engagements {
		if e.ContentID == contentID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetEngagementsByPlatform(platform models.Platform) ([]*models.UnifiedEngagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.UnifiedEngagement
	for _, e := range s.engagements {
		if e.Platform == platform {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalMessages:    len(s.messages),
		TotalEngagements: len(s.engagements),
		ByPlatform:       make(map[models.Platform]int),
		ByDirection:      make(map[string]int),
		EngagementByType: make(map[string]int),
	}
	for _, m := range s.messages {
		stats.ByPlatform[m.Platform]++
		stats.ByDirection[m.Direction]++
	}
	for _, e := range s.engagements {
		stats.EngagementByType[e.EngagementType]++
	}
	return stats, nil
}
