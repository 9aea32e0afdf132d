package flavor

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Categories every flavor file must cover
var Categories = []string{"one", "one_bozo", "low", "sus", "high", "top", "joke", "joke_bozo"}

// Entry is the text appended to a roll message and the reactions added to it
type Entry struct {
	Text      string   `yaml:"text"`
	Reactions []string `yaml:"reactions"`
}

// Messages are reply templates; {key} placeholders are filled by Render
type Messages struct {
	Rolled            string `yaml:"rolled"`
	AlreadyRolled     string `yaml:"already_rolled"`
	AlreadyRolledBozo string `yaml:"already_rolled_bozo"`
	WrongChannel      string `yaml:"wrong_channel"`
	WrongChannelBozo  string `yaml:"wrong_channel_bozo"`
	Cooldown          string `yaml:"cooldown"`
	StorageError      string `yaml:"storage_error"`
	ExportDenied      string `yaml:"export_denied"`
	ExportReady       string `yaml:"export_ready"`
	RollRemoved       string `yaml:"roll_removed"`
	RollNotFound      string `yaml:"roll_not_found"`
	NotSubscriber     string `yaml:"not_subscriber"`
	InvalidNumber     string `yaml:"invalid_number"`
	Converted         string `yaml:"converted"`
	DeathLives        string `yaml:"death_lives"`
	DeathDies         string `yaml:"death_dies"`
	DeathDenied       string `yaml:"death_denied"`
	DebugReady        string `yaml:"debug_ready"`
	DebugDenied       string `yaml:"debug_denied"`
	Pong              string `yaml:"pong"`
}

// Flavor is the bot's presentation layer
type Flavor struct {
	Categories map[string]Entry `yaml:"categories"`
	Messages   Messages         `yaml:"messages"`
}

// Default returns the embedded flavor
func Default() (*Flavor, error) {
	var f Flavor
	if err := yaml.Unmarshal(defaultYAML, &f); err != nil {
		return nil, fmt.Errorf("parse default flavor: %w", err)
	}
	return &f, nil
}

// Load reads path over the defaults; keys missing from the file keep their default value.
// An empty path returns the defaults.
func Load(path string) (*Flavor, error) {
	f, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flavor file: %w", err)
	}

	var override Flavor
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse flavor file %s: %w", path, err)
	}

	for name, entry := range override.Categories {
		f.Categories[name] = entry
	}
	// Decoding again fills only the message keys present in the file
	if err := yaml.Unmarshal(data, &struct {
		Messages *Messages `yaml:"messages"`
	}{Messages: &f.Messages}); err != nil {
		return nil, fmt.Errorf("parse flavor file %s: %w", path, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("flavor file %s: %w", path, err)
	}
	return f, nil
}

// Validate checks that every category has an entry
func (f *Flavor) Validate() error {
	var missing []string
	for _, name := range Categories {
		if _, ok := f.Categories[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing categories: %s", strings.Join(missing, ", "))
	}
	return nil
}

// For returns the entry for category, or an empty entry when unknown
func (f *Flavor) For(category string) Entry {
	return f.Categories[category]
}

// Render fills {key} placeholders in tmpl
func Render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
