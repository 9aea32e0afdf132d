package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/pitbot/internal/config"
	"github.com/fadedpez/pitbot/internal/discord"
	"github.com/fadedpez/pitbot/internal/flavor"
	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
	"github.com/fadedpez/pitbot/pkg/services/report"
	"github.com/fadedpez/pitbot/pkg/services/roll"
)

// requestTimeout bounds the ledger work done for one interaction
const requestTimeout = 10 * time.Second

// presence is the game shown under the bot's name
const presence = "some sick beats with ur dad"

// Bot represents the Discord bot and its dependencies
type Bot struct {
	config   *config.Config
	session  discord.SessionHandler
	ledger   ledger.Repository
	rolls    *roll.Service
	reports  *report.Service
	flavor   *flavor.Flavor
	logger   *logging.Logger
	commands []*discordgo.ApplicationCommand

	cooldowns *cooldowns
	seen      *seenInteractions

	flair     roll.Flair
	deathDraw func() int
	now       func() time.Time

	removeHandlers []func()

	mu         sync.Mutex
	closing    bool
	shutdownWg sync.WaitGroup
}

// Option configures a Bot
type Option func(*Bot)

// WithLogger sets the bot logger
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithFlavor replaces the flavor loaded from config
func WithFlavor(f *flavor.Flavor) Option {
	return func(b *Bot) {
		b.flavor = f
	}
}

// WithFlair replaces the cosmetic draw used for roll categories and joke replies
func WithFlair(flair roll.Flair) Option {
	return func(b *Bot) {
		if flair != nil {
			b.flair = flair
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a new instance of Bot serving the ledger in repo
func New(cfg *config.Config, session discord.SessionHandler, repo ledger.Repository, opts ...Option) (*Bot, error) {
	b := &Bot{
		config:    cfg,
		session:   session,
		ledger:    repo,
		logger:    logging.Default,
		commands:  make([]*discordgo.ApplicationCommand, 0),
		cooldowns: newCooldowns(cfg.Cooldown),
		seen:      newSeenInteractions(),
		flair:     roll.DefaultFlair,
		deathDraw: func() int { return rand.IntN(2) + 1 },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("bot")

	if b.flavor == nil {
		f, err := flavor.Load(cfg.FlavorPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load flavor: %w", err)
		}
		b.flavor = f
	}

	b.rolls = roll.NewService(repo,
		roll.WithLocation(cfg.Location()),
		roll.WithJokeDates(cfg.JokeDates),
		roll.WithFlair(b.flair),
		roll.WithLogger(b.logger.With("roll")),
	)
	b.reports = report.NewService(repo, cfg.Location())

	// discordgo dispatches on the handler's concrete signature
	b.removeHandlers = append(b.removeHandlers,
		session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			b.handleReady(b.session, r)
		}),
		session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			b.handleInteractionCreate(b.session, i)
		}),
	)

	return b, nil
}

// Start initializes the bot and connects to Discord
func (b *Bot) Start() error {
	// Open connection to Discord
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Register commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Bot started with %d commands", len(b.commands))
	return nil
}

// handleReady sets the bot's presence once the gateway session is up
func (b *Bot) handleReady(s discord.SessionHandler, r *discordgo.Ready) {
	if r.User != nil {
		b.logger.Info("%s has connected to Discord!", r.User.Username)
		b.logger.Info("Invite URL is: %s", InviteURL(r.User.ID))
	}

	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     string(discordgo.StatusDoNotDisturb),
		Activities: []*discordgo.Activity{{Name: presence, Type: discordgo.ActivityTypeGame}},
	})
	if err != nil {
		b.logger.Warn("Failed to set presence: %v", err)
	}
}

// InviteURL returns the OAuth link that adds the bot and its commands to a server
func InviteURL(clientID string) string {
	return "https://discord.com/api/oauth2/authorize?client_id=" + clientID + "&permissions=0&scope=bot%20applications.commands"
}

// track registers an in-flight interaction, or reports false once Shutdown has begun
func (b *Bot) track() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closing {
		return false
	}
	b.shutdownWg.Add(1)
	return true
}

// Shutdown gracefully shuts down the bot
func (b *Bot) Shutdown() {
	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()

	// Cleanup commands if in development
	if b.config.IsDevelopment() {
		if err := b.cleanupCommands(); err != nil {
			b.logger.Error("Failed to clean up commands: %v", err)
		}
	}

	for _, remove := range b.removeHandlers {
		remove()
	}

	// Close Discord session
	if err := b.session.Close(); err != nil {
		b.logger.Error("Error closing Discord session: %v", err)
	}

	// Wait for any ongoing operations to complete
	b.shutdownWg.Wait()
}

// Prune drops expired cooldowns and remembered interaction ids
func (b *Bot) Prune(now time.Time) int {
	return b.cooldowns.prune(now) + b.seen.prune(now)
}

func (b *Bot) registerCommands() error {
	for _, cmd := range Commands {
		created, err := b.session.ApplicationCommandCreate(b.config.AppID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("create command %s: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, created)
	}
	return nil
}

// cleanupCommands deletes every command registered for the app in the configured scope
func (b *Bot) cleanupCommands() error {
	cmds, err := b.session.ApplicationCommands(b.config.AppID, b.config.GuildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	for _, cmd := range cmds {
		if err := b.session.ApplicationCommandDelete(b.config.AppID, b.config.GuildID, cmd.ID); err != nil {
			b.logger.Warn("Failed to delete command %s: %v", cmd.Name, err)
		}
	}
	b.commands = b.commands[:0]
	return nil
}

// requestContext scopes the ledger calls of one interaction
func (b *Bot) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
