package instagram

import (
	"context"
	"testing"

	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

func TestHandleWebhookDirectMessage(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	p := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Messaging: []MessagingEvent{{
				Sender:    User{ID: "ig-user-1"},
				Recipient: User{ID: "ig-acct-1"},
				Timestamp: 1700000000000,
				Message:   &Message{MID: "igmid-1", Text: "love this"},
			}},
		}},
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	msgs, _ := store.GetMessagesByPlatform(models.PlatformInstagram)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Platform != models.PlatformInstagram {
		t.Errorf("Platform = %q", msgs[0].Platform)
	}
	if msgs[0].Text != "love this" || msgs[0].SenderID != "ig-user-1" {
		t.Errorf("message = %+v", msgs[0])
	}
}

func TestHandleWebhookStoryReply(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	p := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Messaging: []MessagingEvent{{
				Sender:    User{ID: "ig-user-1"},
				Recipient: User{ID: "ig-acct-1"},
				Message: &Message{
					MID:  "igmid-2",
					Text: "nice story",
					ReplyTo: &ReplyTo{
						Story: &Story{ID: "story-9", URL: "https://cdn.example/story.mp4"},
					},
				},
			}},
		}},
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	msgs, _ := store.GetMessagesByPlatform(models.PlatformInstagram)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Context["story_id"] != "story-9" {
		t.Errorf("story context missing: %v", msgs[0].Context)
	}
}

func TestHandleWebhookStoryMentionAttachment(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	p := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Messaging: []MessagingEvent{{
				Sender:    User{ID: "ig-user-1"},
				Recipient: User{ID: "ig-acct-1"},
				Message: &Message{
					MID: "igmid-3",
					Attachments: []Attachment{{
						Type:    "story_mention",
						Payload: AttachmentPayload{URL: "https://cdn.example/story.jpg"},
					}},
				},
			}},
		}},
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	msgs, _ := store.GetMessagesByPlatform(models.PlatformInstagram)
	if len(msgs) != 1 || msgs[0].MessageType != models.MessageTypeStoryMention {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestHandleWebhookComments(t *testing.T) {
	tests := []struct {
		name            string
		field           string
		productType     string
		wantContentType string
	}{
		{"feed comment", FieldComments, "FEED", models.ContentTypePost},
		{"reel comment", FieldComments, "REELS", models.ContentTypeReel},
		{"live comment", FieldLiveComments, "", models.ContentTypeLive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			h := NewHandler(store, nil, nil)

			p := &Payload{
				Object: "instagram",
				Entry: []Entry{{
					ID:   "ig-acct-1",
					Time: 1700000000000,
					Changes: []Change{{
						Field: tt.field,
						Value: ChangeValue{
							ID:    "igc-1",
							Text:  "great reel",
							From:  &From{ID: "ig-user-2", Username: "ada.codes"},
							Media: &Media{ID: "media-1", MediaProductType: tt.productType},
						},
					}},
				}},
			}

			if ok := h.HandleWebhook(context.Background(), p); !ok {
				t.Fatal("HandleWebhook() = false, want true")
			}
			engs, _ := store.GetEngagementsByContent("media-1")
			if len(engs) != 1 {
				t.Fatalf("got %d engagements, want 1", len(engs))
			}
			if engs[0].ContentType != tt.wantContentType {
				t.Errorf("ContentType = %q, want %q", engs[0].ContentType, tt.wantContentType)
			}
			if engs[0].Username != "ada.codes" {
				t.Errorf("Username = %q", engs[0].Username)
			}
		})
	}
}

func TestHandleWebhookMention(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	p := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID:   "ig-acct-1",
			Time: 1700000000000,
			Changes: []Change{{
				Field: FieldMentions,
				Value: ChangeValue{
					MediaID:   "media-7",
					CommentID: "igc-7",
					Text:      "check out @brand",
					From:      &From{ID: "ig-user-4", Username: "fan.account"},
				},
			}},
		}},
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	engs, _ := store.GetEngagementsByContent("media-7")
	if len(engs) != 1 || engs[0].EngagementType != models.EngagementMention {
		t.Fatalf("engagements = %+v", engs)
	}
	if engs[0].UserID != "ig-user-4" || engs[0].Username != "fan.account" {
		t.Errorf("user attribution = %q/%q", engs[0].UserID, engs[0].Username)
	}
	if engs[0].Text != "check out @brand" {
		t.Errorf("Text = %q", engs[0].Text)
	}
}

func TestHandleWebhookCommentReply(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"id": "ig-acct-1",
			"time": 1700000000000,
			"changes": [{
				"field": "comments",
				"value": {
					"id": "igc-2",
					"text": "replying",
					"parent_id": "igc-1",
					"from": {"id": "ig-user-2", "username": "ada.codes"},
					"media": {"id": "media-1", "media_product_type": "FEED"}
				}
			}]
		}]
	}`)
	p, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	engs, _ := store.GetEngagementsByContent("media-1")
	if len(engs) != 1 {
		t.Fatalf("got %d engagements, want 1", len(engs))
	}
	if engs[0].ParentID != "igc-1" {
		t.Errorf("ParentID = %q, want igc-1", engs[0].ParentID)
	}
}

func TestHandleWebhookDelivery(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	seed := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Messaging: []MessagingEvent{{
				Sender:    User{ID: "ig-user-1"},
				Recipient: User{ID: "ig-acct-1"},
				Message:   &Message{MID: "igmid-d1", Text: "hi"},
			}},
		}},
	}
	if ok := h.HandleWebhook(context.Background(), seed); !ok {
		t.Fatal("seed HandleWebhook() = false")
	}

	delivery := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Messaging: []MessagingEvent{{
				Sender:   User{ID: "ig-user-1"},
				Delivery: &Delivery{MIDs: []string{"igmid-d1"}},
			}},
		}},
	}
	if ok := h.HandleWebhook(context.Background(), delivery); !ok {
		t.Fatal("delivery HandleWebhook() = false")
	}

	msgs, _ := store.GetMessagesByPlatform(models.PlatformInstagram)
	if msgs[0].Status != models.StatusDelivered {
		t.Errorf("Status = %q, want delivered", msgs[0].Status)
	}
}

type fakeProfiles struct {
	profiles map[string]map[string]interface{}
}

func (f *fakeProfiles) GetUserProfile(ctx context.Context, userID string) (map[string]interface{}, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, context.Canceled
}

func TestHandleWebhookSenderEnrichment(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, &fakeProfiles{profiles: map[string]map[string]interface{}{
		"ig-user-1": {"username": "ada.codes", "name": "Ada"},
	}})

	p := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Messaging: []MessagingEvent{
				{
					Sender:    User{ID: "ig-user-1"},
					Recipient: User{ID: "ig-acct-1"},
					Message:   &Message{MID: "igmid-e1", Text: "hello"},
				},
				{
					Sender:    User{ID: "ig-user-unknown"},
					Recipient: User{ID: "ig-acct-1"},
					Message:   &Message{MID: "igmid-e2", Text: "also hello"},
				},
			},
		}},
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	msgs, _ := store.GetMessagesByPlatform(models.PlatformInstagram)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].SenderUsername != "ada.codes" || msgs[0].SenderName != "Ada" {
		t.Errorf("enriched sender = %q/%q", msgs[0].SenderUsername, msgs[0].SenderName)
	}
	// A failed profile lookup must not block the message.
	if msgs[1].SenderUsername != "" {
		t.Errorf("unknown sender username = %q, want empty", msgs[1].SenderUsername)
	}
}

func TestHandleWebhookWrongObject(t *testing.T) {
	h := NewHandler(storage.NewMemoryStore(), nil, nil)
	if ok := h.HandleWebhook(context.Background(), &Payload{Object: "page"}); ok {
		t.Error("HandleWebhook() = true for wrong object type")
	}
}

func TestHandleWebhookStoryInsightsLogged(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewHandler(store, nil, nil)

	p := &Payload{
		Object: "instagram",
		Entry: []Entry{{
			ID: "ig-acct-1",
			Changes: []Change{{
				Field: FieldStoryInsights,
				Value: ChangeValue{StoryID: "story-1", Impressions: 120, Reach: 90},
			}},
		}},
	}

	if ok := h.HandleWebhook(context.Background(), p); !ok {
		t.Fatal("HandleWebhook() = false, want true")
	}
	engs, _ := store.GetEngagementsByPlatform(models.PlatformInstagram)
	if len(engs) != 0 {
		t.Errorf("story insights should not produce engagements, got %d", len(engs))
	}
}
