package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"omnihook/internal/pkg/optout"
	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

// Sender delivers outbound WhatsApp messages through the Cloud API.
type Sender interface {
	SendWhatsAppText(ctx context.Context, phoneNumberID, to, text string) error
}

// Handler normalizes WhatsApp Business webhook payloads into unified
// records.
type Handler struct {
	store  storage.Store
	sender Sender
}

func NewHandler(store storage.Store, sender Sender) *Handler {
	return &Handler{store: store, sender: sender}
}

// HandleWebhook processes every change in every entry. Failing changes
// are logged and skipped; any failure makes the overall result false.
// Unlike the page and instagram payloads there is no object discriminator
// to enforce; Cloud API deliveries are accepted as-is.
func (h *Handler) HandleWebhook(ctx context.Context, p *Payload) bool {
	if p.Object != "" && p.Object != "whatsapp_business_account" {
		log.Warn().Str("object", p.Object).Msg("unexpected whatsapp webhook object type")
	}

	ok := true
	for i := range p.Entry {
		if err := h.processEntry(ctx, &p.Entry[i]); err != nil {
			log.Error().Err(err).Str("waba_id", p.Entry[i].ID).Msg("whatsapp entry processing failed")
			ok = false
		}
	}
	return ok
}

func (h *Handler) processEntry(ctx context.Context, entry *Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing entry: %v", r)
		}
	}()

	var errs []error
	for i := range entry.Changes {
		if e := h.processChange(ctx, &entry.Changes[i]); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) processChange(ctx context.Context, change *Change) error {
	value := &change.Value

	switch change.Field {
	case FieldMessages:
		return h.processMessagesValue(ctx, value)
	case FieldTemplateStatusUpdate:
		log.Info().Str("template", value.MessageTemplateName).Str("event", value.Event).
			Str("reason", value.Reason).Msg("whatsapp template status update")
		return nil
	case FieldPhoneNumberQuality:
		log.Warn().Str("phone", value.DisplayPhoneNumber).Str("event", value.Event).
			Str("current_limit", value.CurrentLimit).Msg("whatsapp phone number quality update")
		return nil
	case FieldAccountReviewUpdate:
		log.Info().Str("decision", value.Decision).Msg("whatsapp account review update")
		return nil
	case FieldAccountUpdate:
		event := log.Warn().Str("event", value.Event).Str("phone", value.PhoneNumber)
		if value.BanInfo != nil {
			event = event.Str("ban_state", value.BanInfo.WabaBanState)
		}
		event.Msg("whatsapp account update")
		return nil
	case FieldSecurity:
		log.Warn().Str("event", value.Event).Str("requester", value.Requester).
			Msg("whatsapp security notification")
		return nil
	}
	log.Info().Str("field", change.Field).Msg("unhandled whatsapp change field, skipping")
	return nil
}

func (h *Handler) processMessagesValue(ctx context.Context, value *Value) error {
	contactNames := map[string]string{}
	for _, c := range value.Contacts {
		contactNames[c.WaID] = c.Profile.Name
	}

	var errs []error
	for i := range value.Messages {
		if err := h.processMessage(ctx, value, &value.Messages[i], contactNames); err != nil {
			errs = append(errs, err)
		}
	}
	for i := range value.Statuses {
		if err := h.processStatus(&value.Statuses[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) processMessage(ctx context.Context, value *Value, message *Message, names map[string]string) error {
	if len(message.Errors) > 0 {
		log.Warn().Str("message_id", message.ID).Int("code", message.Errors[0].Code).
			Str("title", message.Errors[0].Title).Msg("whatsapp message arrived with errors")
	}

	msg := &models.UnifiedMessage{
		PlatformMessageID: message.ID,
		ConversationID:    message.From,
		SenderID:          message.From,
		SenderName:        names[message.From],
		Timestamp:         models.ISOFromUnixString(message.Timestamp),
	}
	if value.Metadata != nil {
		msg.RecipientID = value.Metadata.PhoneNumberID
	}
	if message.Context != nil {
		msg.ReplyTo = message.Context.ID
	}

	applyMessageContent(msg, message)

	if optout.Detect(msg.Text) {
		h.handleOptOut(ctx, value, message.From)
	}

	if _, err := h.store.StoreMessage(models.PlatformWhatsApp, msg); err != nil {
		return fmt.Errorf("store message %s: %w", message.ID, err)
	}
	return nil
}

// applyMessageContent maps the type-specific payload onto the unified
// shape. Unknown types fall back to text with the raw type recorded.
func applyMessageContent(msg *models.UnifiedMessage, message *Message) {
	switch message.Type {
	case "text":
		msg.MessageType = models.MessageTypeText
		if message.Text != nil {
			msg.Text = message.Text.Body
		}
	case "image":
		applyMedia(msg, models.MessageTypeImage, message.Image)
	case "sticker":
		applyMedia(msg, models.MessageTypeImage, message.Sticker)
	case "video":
		applyMedia(msg, models.MessageTypeVideo, message.Video)
	case "audio":
		applyMedia(msg, models.MessageTypeAudio, message.Audio)
	case "document":
		applyMedia(msg, models.MessageTypeFile, message.Document)
	case "location":
		msg.MessageType = models.MessageTypeLocation
		if message.Location != nil {
			msg.Context = map[string]string{
				"latitude":  fmt.Sprintf("%f", message.Location.Latitude),
				"longitude": fmt.Sprintf("%f", message.Location.Longitude),
			}
			msg.Text = message.Location.Name
		}
	case "interactive":
		msg.MessageType = models.MessageTypeInteractive
		if message.Interactive != nil {
			id, title := interactiveReply(message.Interactive)
			msg.Text = title
			msg.Context = map[string]string{"reply_id": id}
		}
	case "button":
		msg.MessageType = models.MessageTypeInteractive
		if message.Button != nil {
			msg.Text = message.Button.Text
			msg.Context = map[string]string{"button_payload": message.Button.Payload}
		}
	default:
		msg.MessageType = models.MessageTypeText
		msg.Context = map[string]string{"raw_type": message.Type}
	}
}

func applyMedia(msg *models.UnifiedMessage, messageType string, media *Media) {
	msg.MessageType = messageType
	if media == nil {
		return
	}
	// Cloud API media is referenced by id, not URL; the id goes in the
	// media slot for a later download call.
	msg.MediaURL = media.ID
	msg.MimeType = media.MimeType
	msg.Text = media.Caption
}

func interactiveReply(in *Interactive) (id, title string) {
	if in.ButtonReply != nil {
		return in.ButtonReply.ID, in.ButtonReply.Title
	}
	if in.ListReply != nil {
		return in.ListReply.ID, in.ListReply.Title
	}
	return "", ""
}

func (h *Handler) processStatus(status *Status) error {
	if status.Status == models.StatusFailed && len(status.Errors) > 0 {
		log.Warn().Str("message_id", status.ID).Int("code", status.Errors[0].Code).
			Str("title", status.Errors[0].Title).Msg("whatsapp message failed")
	}
	if err := h.store.UpdateMessageStatus(status.ID, status.Status); err != nil {
		return fmt.Errorf("update status of %s to %s: %w", status.ID, status.Status, err)
	}
	return nil
}

func (h *Handler) handleOptOut(ctx context.Context, value *Value, userID string) {
	log.Info().Str("user_id", userID).Msg("opt-out request detected")

	if err := h.store.RecordOptOut(models.PlatformWhatsApp, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to record opt-out")
	}
	if h.sender == nil || value.Metadata == nil {
		return
	}
	if err := h.sender.SendWhatsAppText(ctx, value.Metadata.PhoneNumberID, userID, optout.ConfirmationText); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to send opt-out confirmation")
	}
}
