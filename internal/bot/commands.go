package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Command names
const (
	CommandPitRoll      = "pitroll"
	CommandPitData      = "pitdata"
	CommandRemoveRoll   = "removeroll"
	CommandPing         = "ping"
	CommandConvertNikez = "convertnikez"
	CommandRollForDeath = "rollfordeath"
	CommandDebug        = "debug"
)

// defaultDebugMessages is how far back /debug reads when bozo_points is omitted
const defaultDebugMessages = 500

// metresPerNikez is the height of one Nikez
const metresPerNikez = 1.87

// Units maps each /convertnikez unit choice to its length in metres
var Units = map[string]float64{
	"Metres":        1,
	"Centimetres":   0.01,
	"Milimetres":    0.001,
	"Kilometres":    1000,
	"Inches":        0.0254,
	"Feet":          0.3048,
	"Yards":         0.9144,
	"Miles":         1609.34,
	"NauticalMiles": 1852,
}

// unitOrder keeps the choice list stable in the Discord client
var unitOrder = []string{"Metres", "Centimetres", "Milimetres", "Kilometres", "Inches", "Feet", "Yards", "Miles", "NauticalMiles"}

var guildOnly = false

// Commands defines all slash commands for the bot
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:         CommandPitRoll,
		Description:  "Rolls your number between 1 and 12 🙂",
		DMPermission: &guildOnly,
	},
	{
		Name:        CommandPitData,
		Description: "Exports a month of rolls",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "month",
				Description: "Month to choose",
				Required:    true,
				Choices:     monthChoices(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "year",
				Description: "The year you want to get data for. Defaults to this year",
			},
		},
	},
	{
		Name:         CommandRemoveRoll,
		Description:  "Removes a user's roll for a day",
		DMPermission: &guildOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Whose roll to remove",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "date",
				Description: "Day of the roll, YYYY-MM-DD",
				Required:    true,
			},
		},
	},
	{
		Name:        CommandPing,
		Description: "Gets the ping from the bot to discord's gateway",
	},
	{
		Name:         CommandConvertNikez,
		Description:  "Converts units to Nikez",
		DMPermission: &guildOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "num",
				Description: "Number to convert",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "unit",
				Description: "Unit to convert",
				Required:    true,
				Choices:     unitChoices(),
			},
		},
	},
	{
		Name:        CommandRollForDeath,
		Description: "Rolls for perma",
	},
	{
		Name:        CommandDebug,
		Description: "Debugging command",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "bozo_points",
				Description: "How many channel messages to dump",
			},
		},
	},
}

func monthChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 12)
	for m := 1; m <= 12; m++ {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  time.Month(m).String(),
			Value: m,
		})
	}
	return choices
}

func unitChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(unitOrder))
	for _, unit := range unitOrder {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  unit,
			Value: unit,
		})
	}
	return choices
}
