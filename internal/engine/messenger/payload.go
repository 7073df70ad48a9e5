// Package messenger normalizes Facebook Page webhooks: Messenger
// conversations, lead generation, and page engagement (comments, mentions,
// ratings).
//
// Ref: https://developers.facebook.com/docs/graph-api/webhooks/reference/page
package messenger

import "encoding/json"

// Payload is the top-level Facebook Page webhook body.
type Payload struct {
	Object string  `json:"object"` // always "page"
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"`   // page ID
	Time      int64            `json:"time"` // epoch milliseconds
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []Change         `json:"changes,omitempty"`
}

type User struct {
	ID string `json:"id"`
}

// MessagingEvent carries exactly one of the pointer sub-objects; Kind
// reports which. Classification and dispatch both read the same tag.
type MessagingEvent struct {
	Sender    User  `json:"sender"`
	Recipient User  `json:"recipient"`
	Timestamp int64 `json:"timestamp"`

	Message  *Message  `json:"message,omitempty"`
	Postback *Postback `json:"postback,omitempty"`
	Delivery *Delivery `json:"delivery,omitempty"`
	Read     *Read     `json:"read,omitempty"`
	Optin    *Optin    `json:"optin,omitempty"`
	Referral *Referral `json:"referral,omitempty"`
	Reaction *Reaction `json:"reaction,omitempty"`
}

// Messaging event kinds, in Kind's priority order.
const (
	EventMessage  = "message"
	EventPostback = "postback"
	EventDelivery = "delivery"
	EventRead     = "read"
	EventOptin    = "optin"
	EventReferral = "referral"
	EventReaction = "reaction"
)

// Kind returns the event's type tag, or "" for an unrecognized event.
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
	case e.Referral != nil:
		return EventReferral
	case e.Reaction != nil:
		return EventReaction
	}
	return ""
}

type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	ReplyTo     *ReplyTo     `json:"reply_to,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type ReplyTo struct {
	MID string `json:"mid"`
}

type Attachment struct {
	Type    string            `json:"type"` // image, video, audio, file, location, template, fallback
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url"`
}

type Postback struct {
	Title    string    `json:"title"`
	Payload  string    `json:"payload"`
	Referral *Referral `json:"referral,omitempty"`
}

type Delivery struct {
	MIDs      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
}

type Read struct {
	Watermark int64 `json:"watermark"`
}

type Optin struct {
	Ref string `json:"ref"`
}

type Referral struct {
	Ref    string `json:"ref"`
	Source string `json:"source"`
	Type   string `json:"type"`
	AdID   string `json:"ad_id"`
}

type Reaction struct {
	MID      string `json:"mid"`
	Action   string `json:"action"` // react, unreact
	Emoji    string `json:"emoji"`
	Reaction string `json:"reaction"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue is the superset of the per-field change shapes; each field's
// processor reads the slice it knows about.
type ChangeValue struct {
	// leadgen
	LeadgenID string `json:"leadgen_id,omitempty"`
	FormID    string `json:"form_id,omitempty"`
	AdID      string `json:"ad_id,omitempty"`
	AdgroupID string `json:"adgroup_id,omitempty"`

	// feed (and embedded comments), mention
	PostID       string `json:"post_id,omitempty"`
	CommentID    string `json:"comment_id,omitempty"`
	ParentID     string `json:"parent_id,omitempty"`
	Verb         string `json:"verb,omitempty"` // add, edited, remove
	Item         string `json:"item,omitempty"`
	Message      string `json:"message,omitempty"`
	From         *From  `json:"from,omitempty"`
	PermalinkURL string `json:"permalink_url,omitempty"`

	// ratings
	ReviewerID string `json:"reviewer_id,omitempty"`
	Rating     int    `json:"rating,omitempty"`
	ReviewText string `json:"review_text,omitempty"`

	// live_videos
	ID                 string `json:"id,omitempty"`
	Status             string `json:"status,omitempty"` // live, scheduled, VOD
	BroadcastStartTime string `json:"broadcast_start_time,omitempty"`
}

type From struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Change fields the handler dispatches on.
const (
	FieldLeadgen    = "leadgen"
	FieldFeed       = "feed"
	FieldMention    = "mention"
	FieldRatings    = "ratings"
	FieldLiveVideos = "live_videos"
)

// Parse decodes and shape-validates the webhook body once, up front.
func Parse(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EventType tags the payload's first event for logging and metrics. It is
// best-effort and returns "" for an empty or unknown shape.
func (p *Payload) EventType() string {
	if len(p.Entry) == 0 {
		return ""
	}
	entry := p.Entry[0]
	if len(entry.Messaging) > 0 {
		return entry.Messaging[0].Kind()
	}
	if len(entry.Changes) > 0 {
		return entry.Changes[0].Field
	}
	return ""
}
