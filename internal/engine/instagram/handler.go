package instagram

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"omnihook/internal/pkg/optout"
	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

// Sender delivers outbound Instagram Direct messages.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// ProfileFetcher resolves a platform-scoped user ID to profile fields.
// Instagram Direct message events carry only the sender's ID.
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, userID string) (map[string]interface{}, error)
}

// Handler normalizes Instagram webhook payloads into unified records.
type Handler struct {
	store    storage.Store
	sender   Sender
	profiles ProfileFetcher
}

// NewHandler builds a handler. sender and profiles may be nil; the
// dependent side effects are then skipped.
func NewHandler(store storage.Store, sender Sender, profiles ProfileFetcher) *Handler {
	return &Handler{store: store, sender: sender, profiles: profiles}
}

// HandleWebhook processes every entry in the payload. Failing entries are
// logged and skipped; any failure makes the overall result false.
func (h *Handler) HandleWebhook(ctx context.Context, p *Payload) bool {
	if p.Object != "instagram" {
		log.Warn().Str("object", p.Object).Msg("unexpected instagram webhook object type")
		return false
	}

	ok := true
	for i := range p.Entry {
		if err := h.processEntry(ctx, &p.Entry[i]); err != nil {
			log.Error().Err(err).Str("account_id", p.Entry[i].ID).Msg("instagram entry processing failed")
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
		if e := h.processChange(entry, &entry.Changes[i]); e != nil {
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
		return h.processPostback(event)
	case EventDelivery:
		return h.processDelivery(event)
	case EventRead:
		log.Debug().Str("sender_id", event.Sender.ID).Str("mid", event.Read.MID).
			Msg("instagram read receipt")
		return nil
	case EventOptin:
		log.Info().Str("sender_id", event.Sender.ID).Str("ref", event.Optin.Ref).
			Msg("instagram opt-in received")
		return nil
	case EventReaction:
		return h.processReaction(event)
	case EventReferral:
		log.Info().Str("sender_id", event.Sender.ID).Str("ref", event.Referral.Ref).
			Str("source", event.Referral.Source).Msg("instagram referral received")
		return nil
	}
	log.Info().Str("sender_id", event.Sender.ID).Msg("unrecognized instagram messaging event, skipping")
	return nil
}

func (h *Handler) processMessage(ctx context.Context, event *MessagingEvent) error {
	message := event.Message
	if message.IsEcho {
		return nil
	}
	if message.IsDeleted {
		log.Info().Str("mid", message.MID).Msg("instagram message deleted upstream")
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
		if message.ReplyTo.MID != "" {
			msg.ReplyTo = message.ReplyTo.MID
		}
		// A story reply arrives as a message with reply_to.story set.
		if message.ReplyTo.Story != nil {
			msg.Context = map[string]string{
				"story_id":  message.ReplyTo.Story.ID,
				"story_url": message.ReplyTo.Story.URL,
			}
		}
	}
	if message.QuickReply != nil {
		if msg.Context == nil {
			msg.Context = map[string]string{}
		}
		msg.Context["quick_reply_payload"] = message.QuickReply.Payload
	}
	if len(message.Attachments) > 0 {
		att := message.Attachments[0]
		msg.MessageType = attachmentMessageType(att.Type)
		msg.MediaURL = att.Payload.URL
	}

	h.enrichSender(ctx, msg)

	if optout.Detect(message.Text) {
		h.handleOptOut(ctx, event.Sender.ID)
	}

	if _, err := h.store.StoreMessage(models.PlatformInstagram, msg); err != nil {
		return fmt.Errorf("store message %s: %w", message.MID, err)
	}
	return nil
}

// enrichSender fills in the sender's username and name from the Graph
// API. Best-effort; the message is stored either way.
func (h *Handler) enrichSender(ctx context.Context, msg *models.UnifiedMessage) {
	if h.profiles == nil {
		return
	}
	profile, err := h.profiles.GetUserProfile(ctx, msg.SenderID)
	if err != nil {
		log.Debug().Err(err).Str("sender_id", msg.SenderID).Msg("failed to fetch sender profile")
		return
	}
	if username, ok := profile["username"].(string); ok {
		msg.SenderUsername = username
	}
	if name, ok := profile["name"].(string); ok {
		msg.SenderName = name
	}
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

func attachmentMessageType(attachmentType string) string {
	switch attachmentType {
	case "image":
		return models.MessageTypeImage
	case "video", "ig_reel":
		return models.MessageTypeVideo
	case "audio":
		return models.MessageTypeAudio
	case "file":
		return models.MessageTypeFile
	case "story_mention":
		return models.MessageTypeStoryMention
	case "share":
		return models.MessageTypeText
	}
	return models.MessageTypeText
}

func (h *Handler) processPostback(event *MessagingEvent) error {
	postback := event.Postback

	msg := &models.UnifiedMessage{
		PlatformMessageID: postback.MID,
		ConversationID:    event.Sender.ID,
		SenderID:          event.Sender.ID,
		RecipientID:       event.Recipient.ID,
		MessageType:       models.MessageTypeInteractive,
		Text:              postback.Title,
		Context:           map[string]string{"postback_payload": postback.Payload},
		Timestamp:         models.ISOFromMillis(event.Timestamp),
	}
	if _, err := h.store.StoreMessage(models.PlatformInstagram, msg); err != nil {
		return fmt.Errorf("store postback: %w", err)
	}
	return nil
}

func (h *Handler) processReaction(event *MessagingEvent) error {
	reaction := event.Reaction
	if reaction.Action == "unreact" {
		log.Info().Str("sender_id", event.Sender.ID).Str("mid", reaction.MID).
			Msg("instagram reaction removed")
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
	if _, err := h.store.StoreEngagement(models.PlatformInstagram, eng); err != nil {
		return fmt.Errorf("store reaction: %w", err)
	}
	return nil
}

func (h *Handler) processChange(entry *Entry, change *Change) error {
	value := &change.Value

	switch change.Field {
	case FieldComments:
		return h.processComment(entry, value, "")
	case FieldLiveComments:
		return h.processComment(entry, value, models.ContentTypeLive)
	case FieldMentions:
		return h.processMention(entry, value)
	case FieldStoryInsights:
		log.Info().Str("story_id", value.StoryID).Int("impressions", value.Impressions).
			Int("reach", value.Reach).Int("replies", value.Replies).
			Msg("instagram story insights")
		return nil
	case FieldBusinessAccount:
		log.Info().Str("account_id", entry.ID).Str("event", value.Event).
			Msg("instagram business account update")
		return nil
	}
	log.Info().Str("field", change.Field).Msg("unhandled instagram change field, skipping")
	return nil
}

func (h *Handler) processComment(entry *Entry, value *ChangeValue, contentType string) error {
	eng := &models.UnifiedEngagement{
		PlatformEngagementID: value.ID,
		EngagementType:       models.EngagementComment,
		Text:                 value.Text,
		Timestamp:            models.ISOFromMillis(entry.Time),
	}
	if value.From != nil {
		eng.UserID = value.From.ID
		eng.Username = value.From.Username
	}
	if value.Media != nil {
		eng.ContentID = value.Media.ID
		if contentType == "" {
			contentType = mediaContentType(value.Media.MediaProductType)
		}
	}
	if contentType == "" {
		contentType = models.ContentTypePost
	}
	eng.ContentType = contentType
	eng.ParentID = value.ParentID

	if _, err := h.store.StoreEngagement(models.PlatformInstagram, eng); err != nil {
		return fmt.Errorf("store comment %s: %w", value.ID, err)
	}
	return nil
}

func mediaContentType(productType string) string {
	switch productType {
	case "REELS":
		return models.ContentTypeReel
	case "STORY":
		return models.ContentTypeStory
	}
	return models.ContentTypePost
}

func (h *Handler) processMention(entry *Entry, value *ChangeValue) error {
	eng := &models.UnifiedEngagement{
		PlatformEngagementID: value.CommentID,
		EngagementType:       models.EngagementMention,
		ContentID:            value.MediaID,
		ContentType:          models.ContentTypePost,
		Text:                 value.Text,
		Timestamp:            models.ISOFromMillis(entry.Time),
	}
	if value.From != nil {
		eng.UserID = value.From.ID
		eng.Username = value.From.Username
	}
	if eng.PlatformEngagementID == "" {
		eng.PlatformEngagementID = value.MediaID
	}
	if _, err := h.store.StoreEngagement(models.PlatformInstagram, eng); err != nil {
		return fmt.Errorf("store mention: %w", err)
	}
	return nil
}

func (h *Handler) handleOptOut(ctx context.Context, userID string) {
	log.Info().Str("user_id", userID).Msg("opt-out request detected")

	if err := h.store.RecordOptOut(models.PlatformInstagram, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to record opt-out")
	}
	if h.sender == nil {
		return
	}
	if err := h.sender.SendText(ctx, userID, optout.ConfirmationText); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to send opt-out confirmation")
	}
}
