package discord

import (
	"bytes"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/pitbot/internal/types"
)

// ResponseEmoji maps error codes to appropriate emojis
var ResponseEmoji = map[types.ErrorCode]string{
	types.ErrStorageUnavailable: "💾",
	types.ErrNotFound:           "🔍",
	types.ErrAlreadyRolled:      "🎲",
	types.ErrPermissionDenied:   "🚫",
	types.ErrWrongChannel:       "📍",
	types.ErrOnCooldown:         "⏱️",
	types.ErrInvalidArgument:    "❗",
	types.ErrInternalError:      "💥",
}

// Attachment is a file uploaded with a followup message
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Response represents a Discord interaction response
type Response struct {
	Content   string
	Ephemeral bool
	Files     []Attachment
}

// NewResponse creates a new public Response
func NewResponse(content string) *Response {
	return &Response{Content: content}
}

// NewEphemeralResponse creates a new ephemeral Response (only visible to the user)
func NewEphemeralResponse(content string) *Response {
	return &Response{
		Content:   content,
		Ephemeral: true,
	}
}

// NewErrorResponse creates a new ephemeral error Response
func NewErrorResponse(err error) *Response {
	var rollErr *types.RollError
	if types.As(err, &rollErr) {
		emoji := ResponseEmoji[rollErr.Code]
		if emoji == "" {
			emoji = "❌"
		}
		return NewEphemeralResponse(fmt.Sprintf("%s %s", emoji, rollErr.Message))
	}
	return NewEphemeralResponse(fmt.Sprintf("❌ An error occurred: %v", err))
}

// SendResponse answers an interaction immediately
func SendResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: r.Content,
			Flags:   getFlags(r.Ephemeral),
		},
	})
}

// Defer acknowledges an interaction so the answer can follow later.
// An ephemeral defer makes every followup ephemeral too.
func Defer(s SessionHandler, i *discordgo.InteractionCreate, ephemeral bool) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: getFlags(ephemeral),
		},
	})
}

// SendFollowup sends r after a Defer and returns the created message
func SendFollowup(s SessionHandler, i *discordgo.InteractionCreate, r *Response) (*discordgo.Message, error) {
	params := &discordgo.WebhookParams{
		Content: r.Content,
		Flags:   getFlags(r.Ephemeral),
	}
	for _, file := range r.Files {
		params.Files = append(params.Files, &discordgo.File{
			Name:        file.Name,
			ContentType: file.ContentType,
			Reader:      bytes.NewReader(file.Data),
		})
	}
	return s.FollowupMessageCreate(i.Interaction, true, params)
}

// SendErrorResponse sends an error response
func SendErrorResponse(s SessionHandler, i *discordgo.InteractionCreate, err error) error {
	return SendResponse(s, i, NewErrorResponse(err))
}

// AddReactions reacts to msg with each emoji in order, stopping at the first failure
func AddReactions(s SessionHandler, msg *discordgo.Message, emojis []string) error {
	if msg == nil {
		return nil
	}
	for _, emoji := range emojis {
		if err := s.MessageReactionAdd(msg.ChannelID, msg.ID, emoji); err != nil {
			return fmt.Errorf("add reaction %s: %w", emoji, err)
		}
	}
	return nil
}

// Helper functions

func getFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
