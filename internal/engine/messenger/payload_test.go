package messenger

import "testing"

func TestMessagingEventKind(t *testing.T) {
	tests := []struct {
		name  string
		event MessagingEvent
		want  string
	}{
		{"message", MessagingEvent{Message: &Message{MID: "m1"}}, EventMessage},
		{"postback", MessagingEvent{Postback: &Postback{Payload: "P"}}, EventPostback},
		{"delivery", MessagingEvent{Delivery: &Delivery{MIDs: []string{"m1"}}}, EventDelivery},
		{"read", MessagingEvent{Read: &Read{Watermark: 1}}, EventRead},
		{"optin", MessagingEvent{Optin: &Optin{Ref: "r"}}, EventOptin},
		{"referral", MessagingEvent{Referral: &Referral{Ref: "r"}}, EventReferral},
		{"reaction", MessagingEvent{Reaction: &Reaction{MID: "m1"}}, EventReaction},
		{"message wins over delivery", MessagingEvent{Message: &Message{}, Delivery: &Delivery{}}, EventMessage},
		{"empty", MessagingEvent{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	body := []byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"time": 1700000000000,
			"messaging": [{
				"sender": {"id": "user-1"},
				"recipient": {"id": "page-1"},
				"timestamp": 1700000000000,
				"message": {"mid": "mid-1", "text": "hello"}
			}]
		}]
	}`)

	p, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Object != "page" {
		t.Errorf("Object = %q, want page", p.Object)
	}
	if len(p.Entry) != 1 || len(p.Entry[0].Messaging) != 1 {
		t.Fatalf("unexpected entry shape: %+v", p)
	}
	if got := p.Entry[0].Messaging[0].Message.Text; got != "hello" {
		t.Errorf("message text = %q, want hello", got)
	}
	if got := p.EventType(); got != EventMessage {
		t.Errorf("EventType() = %q, want %q", got, EventMessage)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte(`{"object":`)); err == nil {
		t.Error("Parse() expected error for malformed JSON")
	}
}

func TestPayloadEventTypeFromChanges(t *testing.T) {
	p := &Payload{
		Object: "page",
		Entry: []Entry{{
			ID:      "page-1",
			Changes: []Change{{Field: FieldFeed}},
		}},
	}
	if got := p.EventType(); got != FieldFeed {
		t.Errorf("EventType() = %q, want %q", got, FieldFeed)
	}

	empty := &Payload{Object: "page"}
	if got := empty.EventType(); got != "" {
		t.Errorf("EventType() = %q, want empty", got)
	}
}
