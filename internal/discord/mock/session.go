package mock

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
)

// SessionHandler is a mock implementation of discord.SessionHandler
type SessionHandler struct {
	mock.Mock
}

// InteractionRespond implements discord.SessionHandler
func (s *SessionHandler) InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse) error {
	args := s.Called(i, r)
	return args.Error(0)
}

// FollowupMessageCreate implements discord.SessionHandler
func (s *SessionHandler) FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error) {
	args := s.Called(i, wait, data)
	msg, _ := args.Get(0).(*discordgo.Message)
	return msg, args.Error(1)
}

// MessageReactionAdd implements discord.SessionHandler
func (s *SessionHandler) MessageReactionAdd(channelID string, messageID string, emojiID string) error {
	args := s.Called(channelID, messageID, emojiID)
	return args.Error(0)
}

// ChannelMessages implements discord.SessionHandler
func (s *SessionHandler) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	args := s.Called(channelID, limit, beforeID, afterID, aroundID)
	msgs, _ := args.Get(0).([]*discordgo.Message)
	return msgs, args.Error(1)
}

// ApplicationCommandCreate implements discord.SessionHandler
func (s *SessionHandler) ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	args := s.Called(appID, guildID, cmd)
	created, _ := args.Get(0).(*discordgo.ApplicationCommand)
	return created, args.Error(1)
}

// ApplicationCommandDelete implements discord.SessionHandler
func (s *SessionHandler) ApplicationCommandDelete(appID string, guildID string, cmdID string) error {
	args := s.Called(appID, guildID, cmdID)
	return args.Error(0)
}

// ApplicationCommands implements discord.SessionHandler
func (s *SessionHandler) ApplicationCommands(appID string, guildID string) ([]*discordgo.ApplicationCommand, error) {
	args := s.Called(appID, guildID)
	cmds, _ := args.Get(0).([]*discordgo.ApplicationCommand)
	return cmds, args.Error(1)
}

// Open implements discord.SessionHandler
func (s *SessionHandler) Open() error {
	args := s.Called()
	return args.Error(0)
}

// Close implements discord.SessionHandler
func (s *SessionHandler) Close() error {
	args := s.Called()
	return args.Error(0)
}

// AddHandler implements discord.SessionHandler
func (s *SessionHandler) AddHandler(handler interface{}) func() {
	args := s.Called(handler)
	return args.Get(0).(func())
}

// HeartbeatLatency implements discord.SessionHandler
func (s *SessionHandler) HeartbeatLatency() time.Duration {
	args := s.Called()
	return args.Get(0).(time.Duration)
}

// UpdateStatusComplex implements discord.SessionHandler
func (s *SessionHandler) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	args := s.Called(usd)
	return args.Error(0)
}

// State implements discord.SessionHandler
func (s *SessionHandler) State() *discordgo.State {
	args := s.Called()
	return args.Get(0).(*discordgo.State)
}
