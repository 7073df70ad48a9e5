package whatsapp

import (
	"encoding/json"
	"fmt"
)

// Payload is the top-level WhatsApp Business webhook body. Cloud API
// webhooks always arrive with object "whatsapp_business_account".
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"` // whatsapp business account id
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Change field names.
const (
	FieldMessages             = "messages"
	FieldTemplateStatusUpdate = "message_template_status_update"
	FieldPhoneNumberQuality   = "phone_number_quality_update"
	FieldAccountReviewUpdate  = "account_review_update"
	FieldAccountUpdate        = "account_update"
	FieldSecurity             = "security"
)

// Value is the union of all change value shapes. For the messages field
// the Metadata/Contacts/Messages/Statuses block is set; the account and
// template fields use the trailing scalars.
type Value struct {
	MessagingProduct string    `json:"messaging_product,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`

	// message_template_status_update
	Event               string `json:"event,omitempty"`
	MessageTemplateName string `json:"message_template_name,omitempty"`
	Reason              string `json:"reason,omitempty"`

	// phone_number_quality_update
	DisplayPhoneNumber string `json:"display_phone_number,omitempty"`
	CurrentLimit       string `json:"current_limit,omitempty"`

	// account_review_update
	Decision string `json:"decision,omitempty"`

	// account_update / security
	PhoneNumber string `json:"phone_number,omitempty"`
	BanInfo     *struct {
		WabaBanState string `json:"waba_ban_state"`
		WabaBanDate  string `json:"waba_ban_date"`
	} `json:"ban_info,omitempty"`
	Requester string `json:"requester,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound WhatsApp message. Timestamp is epoch seconds as
// a decimal string.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text        *Text        `json:"text,omitempty"`
	Image       *Media       `json:"image,omitempty"`
	Video       *Media       `json:"video,omitempty"`
	Audio       *Media       `json:"audio,omitempty"`
	Document    *Media       `json:"document,omitempty"`
	Sticker     *Media       `json:"sticker,omitempty"`
	Location    *Location    `json:"location,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
	Button      *Button      `json:"button,omitempty"`
	Context     *MsgContext  `json:"context,omitempty"`
	Errors      []MsgError   `json:"errors,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"button_reply,omitempty"`
	ListReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"list_reply,omitempty"`
}

type Button struct {
	Payload string `json:"payload,omitempty"`
	Text    string `json:"text"`
}

// MsgContext links a reply to its original message.
type MsgContext struct {
	From string `json:"from,omitempty"`
	ID   string `json:"id,omitempty"`
}

type MsgError struct {
	Code  int    `json:"code"`
	Title string `json:"title"`
}

// Status is a delivery status update for an outbound message.
type Status struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // sent | delivered | read | failed
	Timestamp   string     `json:"timestamp"`
	RecipientID string     `json:"recipient_id"`
	Errors      []MsgError `json:"errors,omitempty"`
}

// Parse decodes the raw webhook body.
func Parse(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse whatsapp payload: %w", err)
	}
	return &p, nil
}

// EventType names the first change field in the payload for logging.
func (p *Payload) EventType() string {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return ""
	}
	return p.Entry[0].Changes[0].Field
}
