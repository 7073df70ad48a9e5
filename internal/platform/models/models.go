package models

import "fmt"

// Platform identifies the upstream messaging platform a webhook came from.
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformWhatsApp, PlatformFacebook, PlatformInstagram:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform: %q", s)
}

func AllPlatforms() []Platform {
	return []Platform{PlatformWhatsApp, PlatformFacebook, PlatformInstagram}
}

// Message status values. Transitions are monotonic: received -> sent ->
// delivered -> read. failed is terminal and reachable from any state
// except read.
const (
	StatusReceived  = "received"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

var statusRank = map[string]int{
	StatusReceived:  0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// CanTransition reports whether a message status may move from -> to
// without regressing.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	if from == StatusFailed || from == StatusRead {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Message type values for UnifiedMessage.MessageType.
const (
	MessageTypeText         = "text"
	MessageTypeImage        = "image"
	MessageTypeVideo        = "video"
	MessageTypeAudio        = "audio"
	MessageTypeFile         = "file"
	MessageTypeLocation     = "location"
	MessageTypeInteractive  = "interactive"
	MessageTypeTemplate     = "template"
	MessageTypeStoryMention = "story_mention"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// UnifiedMessage is the platform-agnostic shape every inbound message is
// normalized into. ID is assigned exactly once, at creation.
type UnifiedMessage struct {
	ID                string            `json:"id"`
	Platform          Platform          `json:"platform"`
	PlatformMessageID string            `json:"platform_message_id"`
	ConversationID    string            `json:"conversation_id"`
	SenderID          string            `json:"sender_id"`
	SenderName        string            `json:"sender_name,omitempty"`
	SenderUsername    string            `json:"sender_username,omitempty"`
	RecipientID       string            `json:"recipient_id"`
	MessageType       string            `json:"message_type"`
	Text              string            `json:"text,omitempty"`
	MediaURL          string            `json:"media_url,omitempty"`
	MimeType          string            `json:"mime_type,omitempty"`
	ReplyTo           string            `json:"reply_to,omitempty"`
	Context           map[string]string `json:"context,omitempty"`
	Status            string            `json:"status"`
	Direction         string            `json:"direction"`
	Timestamp         string            `json:"timestamp"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
}

// Engagement type values for UnifiedEngagement.EngagementType.
const (
	EngagementComment  = "comment"
	EngagementMention  = "mention"
	EngagementReaction = "reaction"
	EngagementRating   = "rating"
	EngagementShare    = "share"
)

// Content type values for UnifiedEngagement.ContentType.
const (
	ContentTypePost  = "post"
	ContentTypeStory = "story"
	ContentTypeReel  = "reel"
	ContentTypeVideo = "video"
	ContentTypeLive  = "live"
)

// UnifiedEngagement is an append-only record of a comment, mention,
// reaction, rating or share on a piece of content. Engagements are never
// updated or deleted by the gateway; upstream edits arrive as new events.
type UnifiedEngagement struct {
	ID                   string   `json:"id"`
	Platform             Platform `json:"platform"`
	PlatformEngagementID string   `json:"platform_engagement_id"`
	EngagementType       string   `json:"engagement_type"`
	ContentID            string   `json:"content_id"`
	ContentType          string   `json:"content_type,omitempty"`
	UserID               string   `json:"user_id"`
	Username             string   `json:"username,omitempty"`
	Text                 string   `json:"text,omitempty"`
	Reaction             string   `json:"reaction,omitempty"`
	Rating               int      `json:"rating,omitempty"`
	ParentID             string   `json:"parent_id,omitempty"`
	Timestamp            string   `json:"timestamp"`
	CreatedAt            string   `json:"created_at"`
	UpdatedAt            string   `json:"updated_at"`
}

// Validate enforces the engagement invariants before storage.
func (e *UnifiedEngagement) Validate() error {
	switch e.EngagementType {
	case EngagementComment, EngagementMention, EngagementReaction, EngagementRating, EngagementShare:
	default:
		return fmt.Errorf("invalid engagement type: %q", e.EngagementType)
	}
	if e.EngagementType == EngagementRating && (e.Rating < 1 || e.Rating > 5) {
		return fmt.Errorf("rating out of range: %d", e.Rating)
	}
	return nil
}

// OptOut records a user's request to stop receiving messages.
type OptOut struct {
	Platform  Platform `json:"platform"`
	UserID    string   `json:"user_id"`
	CreatedAt string   `json:"created_at"`
}
