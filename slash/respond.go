package slash

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Message is the payload for responses, followups, and plain channel sends.
// Zero-value fields are omitted from the wire.
type Message struct {
	Content         string
	Embeds          []*discordgo.MessageEmbed
	Components      []discordgo.MessageComponent
	Files           []*discordgo.File
	AllowedMentions *discordgo.MessageAllowedMentions
	TTS             bool
	// Ephemeral makes the message visible to the invoking user only. It
	// binds at initial-response time and cannot be edited on afterwards.
	Ephemeral bool
}

// Text returns a content-only Message.
func Text(format string, args ...any) *Message {
	return &Message{Content: fmt.Sprintf(format, args...)}
}

func (m *Message) empty() bool {
	return m.Content == "" && len(m.Embeds) == 0 && len(m.Components) == 0 && len(m.Files) == 0
}

func (m *Message) flags() discordgo.MessageFlags {
	if m.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// Respond sends the interaction response. The first call posts the callback
// over the interaction token; every later call edits the original response
// in place, so handlers can keep calling Respond as their work progresses.
// A deferred acknowledgement counts as the first response, making the next
// Respond an edit.
//
// A first response that is not deferred must carry content, embeds,
// components or files; an empty one returns a ValidationError before any
// network traffic.
func (c *Context) Respond(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg.Embeds = truncateEmbeds(msg.Embeds)
	msg.Components = normalizeComponents(msg.Components)

	if c.responded {
		edit := &discordgo.WebhookEdit{}
		if msg.Content != "" {
			edit.Content = &msg.Content
		}
		if msg.Embeds != nil {
			edit.Embeds = &msg.Embeds
		}
		if msg.Components != nil {
			edit.Components = &msg.Components
		}
		if len(msg.Files) > 0 {
			edit.Files = msg.Files
		}
		if msg.AllowedMentions != nil {
			edit.AllowedMentions = msg.AllowedMentions
		}
		_, err := c.session.InteractionResponseEdit(c.Interaction, edit)
		if err != nil {
			return fmt.Errorf("failed to edit interaction response: %w", err)
		}
		c.logger.Debug("Edited interaction response", slog.String("interaction_id", c.ID()))
		return nil
	}

	if msg.empty() {
		return validationErrorf("response carries no content, embeds, components or files")
	}
	resp := &discordgo.InteractionResponse{
		Type: c.responseType,
		Data: &discordgo.InteractionResponseData{
			Content:         msg.Content,
			Embeds:          msg.Embeds,
			Components:      msg.Components,
			Files:           msg.Files,
			AllowedMentions: msg.AllowedMentions,
			TTS:             msg.TTS,
			Flags:           msg.flags(),
		},
	}
	if err := c.session.InteractionRespond(c.Interaction, resp); err != nil {
		return fmt.Errorf("failed to send interaction response: %w", err)
	}
	c.responded = true
	c.logger.Debug("Sent interaction response", slog.String("interaction_id", c.ID()))
	return nil
}

// Defer acknowledges the interaction without content, buying the handler up
// to fifteen minutes to Respond. For component interactions the deferral
// promises a message update instead of a new message. Calling Defer after a
// response has gone out is a no-op.
func (c *Context) Defer(ephemeral bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.responded {
		return nil
	}
	resp := &discordgo.InteractionResponse{Type: c.ackType}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := c.session.InteractionRespond(c.Interaction, resp); err != nil {
		return fmt.Errorf("failed to defer interaction response: %w", err)
	}
	c.responded = true
	c.deferred = true
	c.logger.Debug("Deferred interaction response", slog.String("interaction_id", c.ID()))
	return nil
}

// Responded reports whether the initial response (or deferral) has gone out.
func (c *Context) Responded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded
}

// Deleted removes the original response. Response state is unchanged, so a
// later Respond still edits (and recreates) the original.
func (c *Context) Delete() error {
	if err := c.session.InteractionResponseDelete(c.Interaction); err != nil {
		return fmt.Errorf("failed to delete interaction response: %w", err)
	}
	return nil
}

// Followup posts an additional message over the interaction token. Valid
// only after the initial response.
func (c *Context) Followup(msg *Message) (*discordgo.Message, error) {
	c.mu.Lock()
	sent := c.responded
	c.mu.Unlock()
	if !sent {
		return nil, validationErrorf("followup before initial response")
	}
	msg.Embeds = truncateEmbeds(msg.Embeds)
	msg.Components = normalizeComponents(msg.Components)
	out, err := c.session.FollowupMessageCreate(c.Interaction, true, &discordgo.WebhookParams{
		Content:         msg.Content,
		Embeds:          msg.Embeds,
		Components:      msg.Components,
		Files:           msg.Files,
		AllowedMentions: msg.AllowedMentions,
		TTS:             msg.TTS,
		Flags:           msg.flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send followup: %w", err)
	}
	return out, nil
}

// EditFollowup edits a followup message previously returned by Followup.
func (c *Context) EditFollowup(messageID string, msg *Message) (*discordgo.Message, error) {
	msg.Embeds = truncateEmbeds(msg.Embeds)
	msg.Components = normalizeComponents(msg.Components)
	edit := &discordgo.WebhookEdit{}
	if msg.Content != "" {
		edit.Content = &msg.Content
	}
	if msg.Embeds != nil {
		edit.Embeds = &msg.Embeds
	}
	if msg.Components != nil {
		edit.Components = &msg.Components
	}
	if len(msg.Files) > 0 {
		edit.Files = msg.Files
	}
	if msg.AllowedMentions != nil {
		edit.AllowedMentions = msg.AllowedMentions
	}
	out, err := c.session.FollowupMessageEdit(c.Interaction, messageID, edit)
	if err != nil {
		return nil, fmt.Errorf("failed to edit followup: %w", err)
	}
	return out, nil
}

// Send posts a plain message to the invoking channel, bypassing the
// interaction token entirely. It keeps working after the token expires.
func (c *Context) Send(msg *Message) (*discordgo.Message, error) {
	msg.Embeds = truncateEmbeds(msg.Embeds)
	msg.Components = normalizeComponents(msg.Components)
	out, err := c.session.ChannelMessageSendComplex(c.ChannelID(), &discordgo.MessageSend{
		Content:         msg.Content,
		Embeds:          msg.Embeds,
		Components:      msg.Components,
		Files:           msg.Files,
		AllowedMentions: msg.AllowedMentions,
		TTS:             msg.TTS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send channel message: %w", err)
	}
	return out, nil
}
