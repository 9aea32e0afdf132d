package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// SessionHandler defines the interface for Discord session operations
type SessionHandler interface {
	// Core interaction methods
	InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error)
	MessageReactionAdd(channelID string, messageID string, emojiID string) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)

	// Application command methods
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID string, guildID string, cmdID string) error
	ApplicationCommands(appID string, guildID string) ([]*discordgo.ApplicationCommand, error)

	// Session methods
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	HeartbeatLatency() time.Duration
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error

	// State methods
	State() *discordgo.State
}

// DiscordSession implements SessionHandler using discordgo.Session
type DiscordSession struct {
	*discordgo.Session
}

// NewSession creates a new DiscordSession
func NewSession(token string) (*DiscordSession, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return &DiscordSession{Session: s}, nil
}

// Ensure DiscordSession implements SessionHandler
var _ SessionHandler = (*DiscordSession)(nil)

// InteractionRespond implements SessionHandler
func (s *DiscordSession) InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse) error {
	return s.Session.InteractionRespond(i, r)
}

// FollowupMessageCreate implements SessionHandler
func (s *DiscordSession) FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error) {
	return s.Session.FollowupMessageCreate(i, wait, data)
}

// MessageReactionAdd implements SessionHandler
func (s *DiscordSession) MessageReactionAdd(channelID string, messageID string, emojiID string) error {
	return s.Session.MessageReactionAdd(channelID, messageID, emojiID)
}

// ChannelMessages implements SessionHandler
func (s *DiscordSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return s.Session.ChannelMessages(channelID, limit, beforeID, afterID, aroundID, options...)
}

// ApplicationCommandCreate implements SessionHandler
func (s *DiscordSession) ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	return s.Session.ApplicationCommandCreate(appID, guildID, cmd, options...)
}

// ApplicationCommandDelete implements SessionHandler
func (s *DiscordSession) ApplicationCommandDelete(appID string, guildID string, cmdID string) error {
	return s.Session.ApplicationCommandDelete(appID, guildID, cmdID)
}

// ApplicationCommands implements SessionHandler
func (s *DiscordSession) ApplicationCommands(appID string, guildID string) ([]*discordgo.ApplicationCommand, error) {
	return s.Session.ApplicationCommands(appID, guildID)
}

// Open implements SessionHandler
func (s *DiscordSession) Open() error {
	return s.Session.Open()
}

// Close implements SessionHandler
func (s *DiscordSession) Close() error {
	return s.Session.Close()
}

// AddHandler implements SessionHandler
func (s *DiscordSession) AddHandler(handler interface{}) func() {
	return s.Session.AddHandler(handler)
}

// HeartbeatLatency implements SessionHandler
func (s *DiscordSession) HeartbeatLatency() time.Duration {
	return s.Session.HeartbeatLatency()
}

// UpdateStatusComplex implements SessionHandler
func (s *DiscordSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	return s.Session.UpdateStatusComplex(usd)
}

// State implements SessionHandler
func (s *DiscordSession) State() *discordgo.State {
	return s.Session.State
}
