package messenger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"omnihook/internal/pkg/optout"
	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

// Sender delivers outbound text messages (opt-out confirmations).
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// LeadFetcher pulls full lead data for a leadgen notification.
type LeadFetcher interface {
	FetchLead(ctx context.Context, leadgenID string) (map[string]interface{}, error)
}

// Handler normalizes Facebook Page webhook payloads into unified records.
type Handler struct {
	store  storage.Store
	sender Sender
	leads  LeadFetcher
}

// NewHandler builds a handler. sender and leads may be nil; the dependent
// side effects are then skipped.
func NewHandler(store storage.Store, sender Sender, leads LeadFetcher) *Handler {
	return &Handler{store: store, sender: sender, leads: leads}
}

// HandleWebhook processes every entry in the payload. A failing entry does
// not stop the others (at-least-once, no rollback); any failure makes the
// overall result false.
func (h *Handler) HandleWebhook(ctx context.Context, p *Payload) bool {
	if p.Object != "page" {
		log.Warn().Str("object", p.Object).Msg("unexpected facebook webhook object type")
		return false
	}

	ok := true
	for i := range p.Entry {
		if err := h.processEntry(ctx, &p.Entry[i]); err != nil {
			log.Error().Err(err).Str("page_id", p.Entry[i].ID).Msg("facebook entry processing failed")
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
	for i := range entry.Messaging {
		if e := h.processMessagingEvent(ctx, entry, &entry.Messaging[i]); e != nil {
			errs = append(errs, e)
		}
	}
	for i := range entry.Changes {
		if e := h.processChange(ctx, entry, &entry.Changes[i]); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) processMessagingEvent(ctx context.Context, entry *Entry, event *MessagingEvent) error {
	switch event.Kind() {
	case EventMessage:
		return h.processMessage(ctx, event)
	case EventPostback:
		return h.processPostback(ctx, event)
	case EventDelivery:
		return h.processDelivery(event)
	case EventRead:
		log.Debug().Str("sender_id", event.Sender.ID).Int64("watermark", event.Read.Watermark).
			Msg("facebook read receipt")
		return nil
	case EventOptin:
		log.Info().Str("sender_id", event.Sender.ID).Str("ref", event.Optin.Ref).
			Msg("facebook opt-in received")
		return nil
	case EventReferral:
		log.Info().Str("sender_id", event.Sender.ID).Str("source", event.Referral.Source).
			Str("ref", event.Referral.Ref).Str("ad_id", event.Referral.AdID).
			Msg("facebook referral received")
		return nil
	case EventReaction:
		return h.processReaction(event)
	}
	log.Info().Str("sender_id", event.Sender.ID).Msg("unrecognized facebook messaging event, skipping")
	return nil
}

func (h *Handler) processMessage(ctx context.Context, event *MessagingEvent) error {
	message := event.Message
	if message.IsEcho {
		// Echoes are the page's own sends reflected back; not inbound traffic.
		return nil
	}

	msg := &models.UnifiedMessage{
		PlatformMessageID: message.MID,
		ConversationID:    event.Sender.ID,
		SenderID:          event.Sender.ID,
		RecipientID:       event.Recipient.ID,
		MessageType:       models.MessageTypeText,
		Text:              message.Text,
		Timestamp:         models.ISOFromMillis(event.Timestamp),
	}

	if message.ReplyTo != nil {
		msg.ReplyTo = message.ReplyTo.MID
	}
	if message.QuickReply != nil {
		msg.Context = map[string]string{"quick_reply_payload": message.QuickReply.Payload}
	}
	if len(message.Attachments) > 0 {
		att := message.Attachments[0]
		msg.MessageType = attachmentMessageType(att.Type)
		msg.MediaURL = att.Payload.URL
	}

	if optout.Detect(message.Text) {
		h.handleOptOut(ctx, event.Sender.ID)
	}

	if _, err := h.store.StoreMessage(models.PlatformFacebook, msg); err != nil {
		return fmt.Errorf("store message %s: %w", message.MID, err)
	}
	return nil
}

func attachmentMessageType(attachmentType string) string {
	switch attachmentType {
	case "image":
		return models.MessageTypeImage
	case "video":
		return models.MessageTypeVideo
	case "audio":
		return models.MessageTypeAudio
	case "file":
		return models.MessageTypeFile
	case "location":
		return models.MessageTypeLocation
	case "template":
		return models.MessageTypeTemplate
	}
	return models.MessageTypeText
}

func (h *Handler) processPostback(ctx context.Context, event *MessagingEvent) error {
	postback := event.Postback

	msg := &models.UnifiedMessage{
		ConversationID: event.Sender.ID,
		SenderID:       event.Sender.ID,
		RecipientID:    event.Recipient.ID,
		MessageType:    models.MessageTypeInteractive,
		Text:           postback.Title,
		Context:        map[string]string{"postback_payload": postback.Payload},
		Timestamp:      models.ISOFromMillis(event.Timestamp),
	}
	if postback.Referral != nil {
		msg.Context["referral_source"] = postback.Referral.Source
		msg.Context["referral_ref"] = postback.Referral.Ref
	}

	if _, err := h.store.StoreMessage(models.PlatformFacebook, msg); err != nil {
		return fmt.Errorf("store postback: %w", err)
	}
	return nil
}

func (h *Handler) processDelivery(event *MessagingEvent) error {
	var errs []error
	for _, mid := range event.Delivery.MIDs {
		if err := h.store.UpdateMessageStatus(mid, models.StatusDelivered); err != nil {
			errs = append(errs, fmt.Errorf("mark %s delivered: %w", mid, err))
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) processReaction(event *MessagingEvent) error {
	reaction := event.Reaction
	if reaction.Action == "unreact" {
		// Engagements are append-only; a removed reaction is only logged.
		log.Info().Str("sender_id", event.Sender.ID).Str("mid", reaction.MID).
			Msg("facebook reaction removed")
		return nil
	}

	emoji := reaction.Emoji
	if emoji == "" {
		emoji = reaction.Reaction
	}
	eng := &models.UnifiedEngagement{
		PlatformEngagementID: reaction.MID + ":" + event.Sender.ID,
		EngagementType:       models.EngagementReaction,
		ContentID:            reaction.MID,
		UserID:               event.Sender.ID,
		Reaction:             emoji,
		Timestamp:            models.ISOFromMillis(event.Timestamp),
	}
	if _, err := h.store.StoreEngagement(models.PlatformFacebook, eng); err != nil {
		return fmt.Errorf("store reaction: %w", err)
	}
	return nil
}

func (h *Handler) processChange(ctx context.Context, entry *Entry, change *Change) error {
	value := &change.Value

	switch change.Field {
	case FieldLeadgen:
		h.processLeadgen(ctx, value)
		return nil
	case FieldFeed:
		// A feed change with a comment_id is a comment on a post.
		if value.CommentID != "" {
			return h.processComment(entry, value)
		}
		log.Info().Str("post_id", value.PostID).Str("verb", value.Verb).Str("item", value.Item).
			Msg("facebook feed event")
		return nil
	case FieldMention:
		return h.processMention(entry, value)
	case FieldRatings:
		return h.processRating(entry, value)
	case FieldLiveVideos:
		log.Info().Str("video_id", value.ID).Str("status", value.Status).
			Msg("facebook live video event")
		return nil
	}
	log.Info().Str("field", change.Field).Msg("unhandled facebook change field, skipping")
	return nil
}

func (h *Handler) processLeadgen(ctx context.Context, value *ChangeValue) {
	log.Info().Str("leadgen_id", value.LeadgenID).Str("form_id", value.FormID).
		Str("ad_id", value.AdID).Msg("facebook lead generated")

	if h.leads == nil {
		return
	}
	// Best-effort enrichment; the lead notification itself carries no
	// contact fields.
	lead, err := h.leads.FetchLead(ctx, value.LeadgenID)
	if err != nil {
		log.Error().Err(err).Str("leadgen_id", value.LeadgenID).Msg("failed to fetch lead data")
		return
	}
	log.Info().Str("leadgen_id", value.LeadgenID).Int("fields", len(lead)).Msg("lead data fetched")
}

func (h *Handler) processComment(entry *Entry, value *ChangeValue) error {
	eng := &models.UnifiedEngagement{
		PlatformEngagementID: value.CommentID,
		EngagementType:       models.EngagementComment,
		ContentID:            value.PostID,
		ContentType:          models.ContentTypePost,
		Text:                 value.Message,
		ParentID:             value.ParentID,
		Timestamp:            models.ISOFromMillis(entry.Time),
	}
	if value.From != nil {
		eng.UserID = value.From.ID
		eng.Username = value.From.Name
	}
	if _, err := h.store.StoreEngagement(models.PlatformFacebook, eng); err != nil {
		return fmt.Errorf("store comment %s: %w", value.CommentID, err)
	}
	return nil
}

func (h *Handler) processMention(entry *Entry, value *ChangeValue) error {
	eng := &models.UnifiedEngagement{
		PlatformEngagementID: value.PostID,
		EngagementType:       models.EngagementMention,
		ContentID:            value.PostID,
		ContentType:          models.ContentTypePost,
		Text:                 value.Message,
		Timestamp:            models.ISOFromMillis(entry.Time),
	}
	if value.From != nil {
		eng.UserID = value.From.ID
		eng.Username = value.From.Name
	}
	if _, err := h.store.StoreEngagement(models.PlatformFacebook, eng); err != nil {
		return fmt.Errorf("store mention: %w", err)
	}
	return nil
}

func (h *Handler) processRating(entry *Entry, value *ChangeValue) error {
	eng := &models.UnifiedEngagement{
		PlatformEngagementID: value.ReviewerID + ":" + entry.ID,
		EngagementType:       models.EngagementRating,
		ContentID:            entry.ID, // ratings attach to the page itself
		UserID:               value.ReviewerID,
		Text:                 value.ReviewText,
		Rating:               value.Rating,
		Timestamp:            models.ISOFromMillis(entry.Time),
	}
	if _, err := h.store.StoreEngagement(models.PlatformFacebook, eng); err != nil {
		return fmt.Errorf("store rating: %w", err)
	}
	return nil
}

func (h *Handler) handleOptOut(ctx context.Context, userID string) {
	log.Info().Str("user_id", userID).Msg("opt-out request detected")

	if err := h.store.RecordOptOut(models.PlatformFacebook, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to record opt-out")
	}
	if h.sender == nil {
		return
	}
	if err := h.sender.SendText(ctx, userID, optout.ConfirmationText); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to send opt-out confirmation")
	}
}
