package bot

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/pitbot/internal/discord"
	"github.com/fadedpez/pitbot/internal/flavor"
	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/fadedpez/pitbot/pkg/services/roll"
)

// bozoChance is the flair value that turns a reply into its joke variant
const bozoChance = 69

// invoker is the member or user behind an interaction
type invoker struct {
	ID      string
	Name    string // login name, stored in the ledger
	Display string // guild nickname or global name, shown in replies
	Roles   []string
	InGuild bool
}

func invokerOf(i *discordgo.InteractionCreate) invoker {
	if i.Member != nil && i.Member.User != nil {
		return invoker{
			ID:      i.Member.User.ID,
			Name:    i.Member.User.Username,
			Display: displayName(i.Member.Nick, i.Member.User),
			Roles:   i.Member.Roles,
			InGuild: true,
		}
	}
	if i.User != nil {
		return invoker{
			ID:      i.User.ID,
			Name:    i.User.Username,
			Display: displayName("", i.User),
		}
	}
	return invoker{}
}

func displayName(nick string, u *discordgo.User) string {
	switch {
	case nick != "":
		return nick
	case u.GlobalName != "":
		return u.GlobalName
	default:
		return u.Username
	}
}

// handleInteractionCreate handles Discord interaction events
func (b *Bot) handleInteractionCreate(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if !b.track() {
		b.logger.Debug("Ignoring interaction %s during shutdown", i.ID)
		return
	}
	defer b.shutdownWg.Done()

	if !b.seen.mark(i.ID, b.now()) {
		b.logger.Debug("Ignoring repeated interaction %s", i.ID)
		return
	}

	b.handleSlashCommand(s, i)
}

// handleSlashCommand handles all slash commands
func (b *Bot) handleSlashCommand(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	switch name := i.ApplicationCommandData().Name; name {
	case CommandPitRoll:
		b.handlePitRoll(s, i)
	case CommandPitData:
		b.handlePitData(s, i)
	case CommandRemoveRoll:
		b.handleRemoveRoll(s, i)
	case CommandPing:
		b.handlePing(s, i)
	case CommandConvertNikez:
		b.handleConvertNikez(s, i)
	case CommandRollForDeath:
		b.handleRollForDeath(s, i)
	case CommandDebug:
		b.handleDebug(s, i)
	default:
		b.logger.Warn("Unknown command: %s", name)
	}
}

// respond sends r and logs delivery failures
func (b *Bot) respond(s discord.SessionHandler, i *discordgo.InteractionCreate, r *discord.Response) {
	if err := discord.SendResponse(s, i, r); err != nil {
		b.logger.Error("Failed to respond to %s: %v", i.ApplicationCommandData().Name, err)
	}
}

func (b *Bot) followup(s discord.SessionHandler, i *discordgo.InteractionCreate, r *discord.Response) *discordgo.Message {
	msg, err := discord.SendFollowup(s, i, r)
	if err != nil {
		b.logger.Error("Failed to send followup for %s: %v", i.ApplicationCommandData().Name, err)
		return nil
	}
	return msg
}

// checkCooldown answers with the cooldown message and returns false while user is cooling down
func (b *Bot) checkCooldown(s discord.SessionHandler, i *discordgo.InteractionCreate, user invoker) bool {
	if b.config.IsDebugUser(user.ID) {
		return true
	}

	left, ok := b.cooldowns.take(i.ApplicationCommandData().Name, user.ID, b.now())
	if ok {
		return true
	}

	seconds := math.Round(left.Seconds()*100) / 100
	b.respond(s, i, discord.NewEphemeralResponse(flavor.Render(b.flavor.Messages.Cooldown, map[string]string{
		"seconds": strconv.FormatFloat(seconds, 'f', -1, 64),
	})))
	b.logger.Info("%s tried to use %s on cooldown", user.Name, i.ApplicationCommandData().Name)
	return false
}

func (b *Bot) requireGuild(s discord.SessionHandler, i *discordgo.InteractionCreate, user invoker) bool {
	if user.InGuild {
		return true
	}
	b.respond(s, i, discord.NewErrorResponse(types.NewRollError(types.ErrPermissionDenied, "This command only works in a server")))
	return false
}

func (b *Bot) handlePitRoll(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	user := invokerOf(i)
	if !b.requireGuild(s, i, user) || !b.checkCooldown(s, i, user) {
		return
	}

	msgs := b.flavor.Messages
	if b.config.PitChannelID != "" && i.ChannelID != b.config.PitChannelID {
		text := msgs.WrongChannel
		if b.flair(100) == bozoChance {
			text = msgs.WrongChannelBozo
		}
		b.respond(s, i, discord.NewEphemeralResponse(text))
		b.logger.Info("%s tried to use pitroll in channel %s", user.Name, i.ChannelID)
		return
	}

	userID, err := entities.ParseUserID(user.ID)
	if err != nil {
		b.respond(s, i, discord.NewErrorResponse(err))
		return
	}

	if err := discord.Defer(s, i, false); err != nil {
		b.logger.Error("Failed to defer pitroll: %v", err)
		return
	}

	ctx, cancel := b.requestContext()
	defer cancel()

	outcome, err := b.rolls.AttemptRoll(ctx, userID, b.now())
	if err != nil {
		b.logger.LogError(err)
		b.followup(s, i, discord.NewEphemeralResponse(msgs.StorageError))
		return
	}

	if outcome.Kind == roll.KindAlreadyRolled {
		text := flavor.Render(msgs.AlreadyRolled, map[string]string{
			"name": user.Display,
			"unix": strconv.FormatInt(outcome.NextEligible.Unix(), 10),
		})
		if b.flair(100) == bozoChance {
			text += msgs.AlreadyRolledBozo
		}
		b.followup(s, i, discord.NewEphemeralResponse(text))
		b.logger.Info("%s already rolled today", user.Name)
		return
	}

	entry := b.flavor.For(string(outcome.Category))
	msg := b.followup(s, i, discord.NewResponse(flavor.Render(msgs.Rolled, map[string]string{
		"name":  user.Display,
		"value": strconv.Itoa(outcome.DisplayValue),
		"text":  entry.Text,
	})))
	if err := discord.AddReactions(s, msg, entry.Reactions); err != nil {
		b.logger.Warn("Failed to react to roll: %v", err)
	}

	if err := b.ledger.SaveUser(ctx, &entities.User{ID: userID, Username: user.Name}); err != nil {
		b.logger.Warn("Failed to save username for %s: %v", user.ID, err)
	}
	b.logger.Info("%s rolled %d", user.Name, outcome.Value)
}

// authorizeData answers with the refusal and returns false unless user may export and moderate
func (b *Bot) authorizeData(s discord.SessionHandler, i *discordgo.InteractionCreate, user invoker) bool {
	if b.config.CanExport(user.ID, user.Roles) {
		return true
	}
	b.respond(s, i, discord.NewEphemeralResponse(b.flavor.Messages.ExportDenied))
	b.logger.Info("%s tried to use %s without permission", user.Name, i.ApplicationCommandData().Name)
	return false
}

func (b *Bot) handlePitData(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	user := invokerOf(i)
	if !b.authorizeData(s, i, user) {
		return
	}

	opts := optionMap(i)
	month := time.Month(0)
	if opt, ok := opts["month"]; ok {
		month = time.Month(opt.IntValue())
	}
	year := b.now().In(b.rolls.Location()).Year()
	if opt, ok := opts["year"]; ok {
		year = int(opt.IntValue())
	}

	if err := discord.Defer(s, i, true); err != nil {
		b.logger.Error("Failed to defer pitdata: %v", err)
		return
	}

	ctx, cancel := b.requestContext()
	defer cancel()

	files, err := b.reports.MonthlyExport(ctx, month, year)
	if err != nil {
		b.logger.LogError(err)
		if types.IsRollError(err, types.ErrInvalidArgument) {
			b.followup(s, i, discord.NewErrorResponse(err))
			return
		}
		b.followup(s, i, discord.NewEphemeralResponse(b.flavor.Messages.StorageError))
		return
	}

	resp := discord.NewEphemeralResponse(b.flavor.Messages.ExportReady)
	for _, file := range files {
		resp.Files = append(resp.Files, discord.Attachment{Name: file.Name, ContentType: file.ContentType, Data: file.Data})
	}
	b.followup(s, i, resp)
	b.logger.Info("%s used pitdata for %s of %d", user.Name, month, year)
}

func (b *Bot) handleRemoveRoll(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	user := invokerOf(i)
	if !b.authorizeData(s, i, user) {
		return
	}

	opts := optionMap(i)
	userOpt, okUser := opts["user"]
	dateOpt, okDate := opts["date"]
	if !okUser || !okDate {
		b.respond(s, i, discord.NewErrorResponse(types.NewRollError(types.ErrInvalidArgument, "user and date are required")))
		return
	}

	targetID := userOpt.UserValue(nil).ID
	target, err := entities.ParseUserID(targetID)
	if err != nil {
		b.respond(s, i, discord.NewErrorResponse(err))
		return
	}
	removedBy, err := entities.ParseUserID(user.ID)
	if err != nil {
		b.respond(s, i, discord.NewErrorResponse(err))
		return
	}

	loc := b.rolls.Location()
	day, err := time.ParseInLocation(entities.DayLayout, dateOpt.StringValue(), loc)
	if err != nil {
		b.respond(s, i, discord.NewErrorResponse(types.NewRollError(types.ErrInvalidArgument, "date must look like 2024-03-01")))
		return
	}

	if err := discord.Defer(s, i, true); err != nil {
		b.logger.Error("Failed to defer removeroll: %v", err)
		return
	}

	ctx, cancel := b.requestContext()
	defer cancel()

	vars := map[string]string{
		"name": resolvedName(i, targetID),
		"day":  day.Format(entities.DayLayout),
	}

	record, err := b.rolls.InvalidateDay(ctx, target, day, removedBy)
	switch {
	case types.IsRollError(err, types.ErrNotFound):
		b.followup(s, i, discord.NewEphemeralResponse(flavor.Render(b.flavor.Messages.RollNotFound, vars)))
		return
	case err != nil:
		b.logger.LogError(err)
		b.followup(s, i, discord.NewEphemeralResponse(b.flavor.Messages.StorageError))
		return
	}

	if record.Username != "" {
		vars["name"] = record.Username
	}
	vars["value"] = strconv.Itoa(record.Value)
	b.followup(s, i, discord.NewEphemeralResponse(flavor.Render(b.flavor.Messages.RollRemoved, vars)))
	b.logger.Info("%s removed the roll of %s on %s", user.Name, targetID, vars["day"])
}

func (b *Bot) handlePing(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	b.respond(s, i, discord.NewEphemeralResponse(flavor.Render(b.flavor.Messages.Pong, map[string]string{
		"ms": strconv.FormatInt(s.HeartbeatLatency().Milliseconds(), 10),
	})))
}

func (b *Bot) handleConvertNikez(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	user := invokerOf(i)
	if !b.requireGuild(s, i, user) || !b.checkCooldown(s, i, user) {
		return
	}

	msgs := b.flavor.Messages
	if !hasRole(user.Roles, b.config.SubRoleID) {
		b.respond(s, i, discord.NewEphemeralResponse(msgs.NotSubscriber))
		return
	}

	opts := optionMap(i)
	numOpt, okNum := opts["num"]
	unitOpt, okUnit := opts["unit"]
	if !okNum || !okUnit {
		b.respond(s, i, discord.NewEphemeralResponse(msgs.InvalidNumber))
		return
	}

	num := numOpt.FloatValue()
	if num < 0 || math.IsNaN(num) || math.IsInf(num, 0) {
		b.respond(s, i, discord.NewEphemeralResponse(msgs.InvalidNumber))
		return
	}

	unit := unitOpt.StringValue()
	metres, ok := Units[unit]
	if !ok {
		b.respond(s, i, discord.NewErrorResponse(types.NewRollError(types.ErrInvalidArgument, "Unknown unit "+unit)))
		return
	}

	converted := num * metres / metresPerNikez
	b.respond(s, i, discord.NewResponse(flavor.Render(msgs.Converted, map[string]string{
		"num":       strconv.FormatFloat(num, 'f', -1, 64),
		"unit":      unit,
		"converted": strconv.FormatFloat(converted, 'f', -1, 64),
	})))
	b.logger.Info("%s converted %v %s to Nikez", user.Name, num, unit)
}

func (b *Bot) handleRollForDeath(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	user := invokerOf(i)
	msgs := b.flavor.Messages
	vars := map[string]string{"name": user.Display}

	if !b.config.IsDebugUser(user.ID) {
		b.respond(s, i, discord.NewEphemeralResponse(flavor.Render(msgs.DeathDenied, vars)))
		b.logger.Info("%s tried to use rollfordeath", user.Name)
		return
	}

	if err := discord.Defer(s, i, false); err != nil {
		b.logger.Error("Failed to defer rollfordeath: %v", err)
		return
	}

	result := b.deathDraw()
	text := msgs.DeathDies
	if result == 1 {
		text = msgs.DeathLives
	}
	b.followup(s, i, discord.NewResponse(flavor.Render(text, vars)))
	b.logger.Info("%s rolled a %d, 1 is live, 2 is dead", user.Display, result)
}

func (b *Bot) handleDebug(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	user := invokerOf(i)
	msgs := b.flavor.Messages

	if !b.config.IsDebugUser(user.ID) {
		b.respond(s, i, discord.NewEphemeralResponse(flavor.Render(msgs.DebugDenied, map[string]string{"name": user.Name})))
		b.logger.Info("%s tried to use the debug command, this incident has been reported", user.Name)
		return
	}

	limit := defaultDebugMessages
	if opt, ok := optionMap(i)["bozo_points"]; ok {
		limit = int(opt.IntValue())
	}

	if err := discord.Defer(s, i, true); err != nil {
		b.logger.Error("Failed to defer debug: %v", err)
		return
	}

	history, err := channelHistory(s, i.ChannelID, limit)
	if err != nil {
		b.logger.Error("Failed to read history of channel %s: %v", i.ChannelID, err)
		b.followup(s, i, discord.NewEphemeralResponse(msgs.StorageError))
		return
	}

	// History arrives newest first
	var dump strings.Builder
	for idx := len(history) - 1; idx >= 0; idx-- {
		msg := history[idx]
		if msg.Author == nil || msg.Author.Bot {
			continue
		}
		nick := ""
		if msg.Member != nil {
			nick = msg.Member.Nick
		}
		fmt.Fprintf(&dump, "%s : %s \n", displayName(nick, msg.Author), msg.Content)
	}

	resp := discord.NewEphemeralResponse(msgs.DebugReady)
	resp.Files = []discord.Attachment{{Name: "debug.txt", ContentType: "text/plain", Data: []byte(dump.String())}}
	b.followup(s, i, resp)
	b.logger.Info("%s dumped %d messages from channel %s", user.Name, len(history), i.ChannelID)
}

// maxMessagesPerPage is the largest page Discord serves from channel history
const maxMessagesPerPage = 100

// channelHistory pages backwards through channelID until limit messages or the start of the channel
func channelHistory(s discord.SessionHandler, channelID string, limit int) ([]*discordgo.Message, error) {
	var history []*discordgo.Message
	before := ""
	for len(history) < limit {
		page := min(limit-len(history), maxMessagesPerPage)
		batch, err := s.ChannelMessages(channelID, page, before, "", "")
		if err != nil {
			return nil, err
		}
		history = append(history, batch...)
		if len(batch) < page {
			break
		}
		before = batch[len(batch)-1].ID
	}
	return history, nil
}

// Helper functions

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

// resolvedName returns the username Discord resolved for id, or id itself
func resolvedName(i *discordgo.InteractionCreate, id string) string {
	data := i.ApplicationCommandData()
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[id]; ok && u != nil {
			return u.Username
		}
	}
	return id
}

func hasRole(roles []string, role string) bool {
	return role != "" && slices.Contains(roles, role)
}
