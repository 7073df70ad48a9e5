package instagram

import (
	"encoding/json"
	"fmt"
)

// Payload is the top-level Instagram webhook body. The object field must
// be "instagram"; page webhooks arrive on a separate endpoint.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"` // instagram business account id
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []Change         `json:"changes,omitempty"`
}

type User struct {
	ID string `json:"id"`
}

// MessagingEvent is one Instagram Direct event. Exactly one of the
// payload pointers is set per event.
type MessagingEvent struct {
	Sender    User  `json:"sender"`
	Recipient User  `json:"recipient"`
	Timestamp int64 `json:"timestamp"`

	Message  *Message  `json:"message,omitempty"`
	Postback *Postback `json:"postback,omitempty"`
	Delivery *Delivery `json:"delivery,omitempty"`
	Read     *Read     `json:"read,omitempty"`
	Optin    *Optin    `json:"optin,omitempty"`
	Reaction *Reaction `json:"reaction,omitempty"`
	Referral *Referral `json:"referral,omitempty"`
}

// Event type tags returned by Kind.
const (
	EventMessage  = "message"
	EventPostback = "postback"
	EventDelivery = "delivery"
	EventRead     = "read"
	EventOptin    = "optin"
	EventReaction = "reaction"
	EventReferral = "referral"
)

// Kind classifies the event by which payload is present.
func (e *MessagingEvent) Kind() string {
	switch {
	case e.Message != nil:
		return EventMessage
	case e.Postback != nil:
		return EventPostback
	case e.Delivery != nil:
		return EventDelivery
	case e.Read != nil:
		return EventRead
	case e.Optin != nil:
		return EventOptin
	case e.Reaction != nil:
		return EventReaction
	case e.Referral != nil:
		return EventReferral
	}
	return ""
}

type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	IsDeleted   bool         `json:"is_deleted,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	ReplyTo     *ReplyTo     `json:"reply_to,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

// ReplyTo carries either a threaded reply (mid) or a story reply.
type ReplyTo struct {
	MID   string `json:"mid,omitempty"`
	Story *Story `json:"story,omitempty"`
}

type Story struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url,omitempty"`
}

type Postback struct {
	MID     string `json:"mid,omitempty"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark,omitempty"`
}

type Read struct {
	MID string `json:"mid,omitempty"`
}

type Optin struct {
	Ref string `json:"ref,omitempty"`
}

type Reaction struct {
	MID      string `json:"mid"`
	Action   string `json:"action"` // react | unreact
	Emoji    string `json:"emoji,omitempty"`
	Reaction string `json:"reaction,omitempty"`
}

type Referral struct {
	Ref     string `json:"ref,omitempty"`
	Source  string `json:"source,omitempty"`
	Type    string `json:"type,omitempty"`
	Product *struct {
		ID string `json:"id"`
	} `json:"product,omitempty"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue is the union of the field-specific change shapes; only the
// fields matching Change.Field are populated.
type ChangeValue struct {
	// comments, live_comments
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	From     *From  `json:"from,omitempty"`
	Media    *Media `json:"media,omitempty"`
	ParentID string `json:"parent_id,omitempty"`

	// mentions
	MediaID   string `json:"media_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`

	// story_insights
	StoryID     string `json:"story_id,omitempty"`
	Impressions int    `json:"impressions,omitempty"`
	Reach       int    `json:"reach,omitempty"`
	Replies     int    `json:"replies,omitempty"`

	// business_account
	Event string `json:"event,omitempty"`
}

type From struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type Media struct {
	ID               string `json:"id"`
	MediaProductType string `json:"media_product_type,omitempty"` // FEED | REELS | STORY
}

// Change field names.
const (
	FieldComments        = "comments"
	FieldMentions        = "mentions"
	FieldStoryInsights   = "story_insights"
	FieldLiveComments    = "live_comments"
	FieldBusinessAccount = "business_account"
)

// Parse decodes the raw webhook body.
func Parse(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse instagram payload: %w", err)
	}
	return &p, nil
}

// EventType names the first event in the payload for logging.
func (p *Payload) EventType() string {
	if len(p.Entry) == 0 {
		return ""
	}
	entry := &p.Entry[0]
	if len(entry.Messaging) > 0 {
		return entry.Messaging[0].Kind()
	}
	if len(entry.Changes) > 0 {
		return entry.Changes[0].Field
	}
	return ""
}
