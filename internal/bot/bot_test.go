package bot

import (
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/pitbot/internal/config"
	discordmock "github.com/fadedpez/pitbot/internal/discord/mock"
	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var quietLogger = logging.NewLoggerTo(os.Stderr, logging.ERROR)

func testConfig() *config.Config {
	return &config.Config{
		AppID:        "test-app-id",
		GuildID:      "test-guild-id",
		Environment:  "development",
		Cooldown:     10 * time.Minute,
		JokeDates:    []string{"04-01"},
		PitChannelID: "pit",
		DebugUserIDs: []string{"1"},
		DataUserIDs:  []string{"2"},
		ModRoleIDs:   []string{"mod"},
		SubRoleID:    "sub",
	}
}

func expectAddHandler(session *discordmock.SessionHandler) {
	session.On("AddHandler", mock.AnythingOfType("func(*discordgo.Session, *discordgo.Ready)")).
		Return(func() {}).Once()
	session.On("AddHandler", mock.AnythingOfType("func(*discordgo.Session, *discordgo.InteractionCreate)")).
		Return(func() {}).Once()
}

type BotTestSuite struct {
	suite.Suite
	session *discordmock.SessionHandler
	config  *config.Config
	bot     *Bot
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (s *BotTestSuite) SetupTest() {
	s.session = &discordmock.SessionHandler{}
	s.session.Test(s.T())
	s.config = testConfig()
	expectAddHandler(s.session)

	bot, err := New(s.config, s.session, ledger.NewMemoryRepository(), WithLogger(quietLogger))
	s.Require().NoError(err)
	s.bot = bot
}

func (s *BotTestSuite) TearDownTest() {
	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestCommandsAreUnique() {
	names := make(map[string]bool)
	for _, cmd := range Commands {
		s.NotEmpty(cmd.Name, "Command name should not be empty")
		s.NotEmpty(cmd.Description, "Command description should not be empty")
		s.False(names[cmd.Name], "Command names should be unique")
		names[cmd.Name] = true
	}

	for _, required := range []string{CommandPitRoll, CommandPitData, CommandRemoveRoll, CommandPing, CommandConvertNikez, CommandRollForDeath} {
		s.True(names[required], "Required command %s should exist", required)
	}
}

func (s *BotTestSuite) TestUnitChoicesMatchUnits() {
	s.Len(unitOrder, len(Units))
	for _, unit := range unitOrder {
		s.Contains(Units, unit)
	}
	s.Len(monthChoices(), 12)
	s.Equal("January", monthChoices()[0].Name)
}

func (s *BotTestSuite) TestStartRegistersCommands() {
	s.session.On("Open").Return(nil).Once()
	for _, cmd := range Commands {
		s.session.On("ApplicationCommandCreate", "test-app-id", "test-guild-id", cmd).
			Return(&discordgo.ApplicationCommand{ID: cmd.Name + "-id", Name: cmd.Name}, nil).Once()
	}

	s.Require().NoError(s.bot.Start())
	s.Len(s.bot.commands, len(Commands))
	s.Equal("pitroll-id", s.bot.commands[0].ID)
}

func (s *BotTestSuite) TestStartFailsWhenRegistrationFails() {
	s.session.On("Open").Return(nil).Once()
	s.session.On("ApplicationCommandCreate", "test-app-id", "test-guild-id", mock.Anything).
		Return(nil, assert.AnError).Once()

	err := s.bot.Start()
	s.Require().Error(err)
	s.ErrorIs(err, assert.AnError)
	s.Empty(s.bot.commands)
}

func (s *BotTestSuite) TestStartFailsWhenGatewayFails() {
	s.session.On("Open").Return(assert.AnError).Once()

	s.Error(s.bot.Start())
	s.session.AssertNotCalled(s.T(), "ApplicationCommandCreate", mock.Anything, mock.Anything, mock.Anything)
}

func (s *BotTestSuite) TestShutdownCleansUpInDevelopment() {
	existing := []*discordgo.ApplicationCommand{
		{ID: "cmd1", Name: "pitroll"},
		{ID: "cmd2", Name: "ping"},
	}
	s.session.On("ApplicationCommands", "test-app-id", "test-guild-id").Return(existing, nil).Once()
	s.session.On("ApplicationCommandDelete", "test-app-id", "test-guild-id", "cmd1").Return(nil).Once()
	s.session.On("ApplicationCommandDelete", "test-app-id", "test-guild-id", "cmd2").Return(assert.AnError).Once()
	s.session.On("Close").Return(nil).Once()

	s.bot.Shutdown()
}

func (s *BotTestSuite) TestShutdownKeepsCommandsInProduction() {
	s.config.Environment = "production"
	s.session.On("Close").Return(nil).Once()

	s.bot.Shutdown()
	s.session.AssertNotCalled(s.T(), "ApplicationCommands", mock.Anything, mock.Anything)
}

func (s *BotTestSuite) TestShutdownRejectsLateInteractions() {
	s.config.Environment = "production"
	s.session.On("Close").Return(nil).Once()

	s.bot.Shutdown()

	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:     "late",
		Type:   discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{User: &discordgo.User{ID: "42", Username: "alice"}},
		Data:   discordgo.ApplicationCommandInteractionData{Name: CommandPing},
	}}
	s.bot.handleInteractionCreate(s.session, i)

	s.session.AssertNotCalled(s.T(), "InteractionRespond", mock.Anything, mock.Anything)
	s.True(s.bot.seen.mark("late", time.Now()), "a rejected interaction is not remembered")
}

func (s *BotTestSuite) TestReadySetsPresence() {
	s.session.On("UpdateStatusComplex", mock.MatchedBy(func(usd discordgo.UpdateStatusData) bool {
		return usd.Status == "dnd" &&
			len(usd.Activities) == 1 &&
			usd.Activities[0].Name == "some sick beats with ur dad" &&
			usd.Activities[0].Type == discordgo.ActivityTypeGame
	})).Return(nil).Once()

	s.bot.handleReady(s.session, &discordgo.Ready{User: &discordgo.User{ID: "99", Username: "pitbot"}})
}

func (s *BotTestSuite) TestReadyToleratesPresenceFailure() {
	s.session.On("UpdateStatusComplex", mock.Anything).Return(assert.AnError).Once()

	s.NotPanics(func() { s.bot.handleReady(s.session, &discordgo.Ready{}) })
}

func TestInviteURL(t *testing.T) {
	assert.Equal(t,
		"https://discord.com/api/oauth2/authorize?client_id=99&permissions=0&scope=bot%20applications.commands",
		InviteURL("99"))
}

func (s *BotTestSuite) TestCleanupCommandsListError() {
	s.session.On("ApplicationCommands", "test-app-id", "test-guild-id").Return(nil, assert.AnError).Once()

	s.Error(s.bot.cleanupCommands())
}

func TestNewFailsOnMissingFlavorFile(t *testing.T) {
	session := &discordmock.SessionHandler{}
	session.Test(t)

	cfg := testConfig()
	cfg.FlavorPath = t.TempDir() + "/missing.yaml"

	_, err := New(cfg, session, ledger.NewMemoryRepository(), WithLogger(quietLogger))
	assert.Error(t, err)
	session.AssertNotCalled(t, "AddHandler", mock.Anything)
}
