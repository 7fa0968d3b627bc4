package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// GoogleCredentials represents the structure of a Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// UntisConfig holds the WebUntis connection settings.
type UntisConfig struct {
	// Host is the WebUntis server, e.g. "hektor.webuntis.com".
	Host     string `yaml:"host"`
	School   string `yaml:"school"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ColorTable maps timetable cell states to Google Calendar color IDs.
//
// Values are numeric so the derived "standard minus one" color can be
// computed. An unmapped cell state falls back to the minus-one color, which
// is also a member of the set of colors this tool treats as its own when
// listing existing events.
type ColorTable struct {
	Standard int `yaml:"standard"`
	Exam     int `yaml:"exam"`

	// States maps additional cell states (e.g. "SUBSTITUTION") to color IDs.
	States map[string]int `yaml:"states,omitempty"`
}

// StandardMinusOne returns the derived default color ID.
func (t ColorTable) StandardMinusOne() int {
	return t.Standard - 1
}

// ForState returns the color ID for a timetable cell state.
func (t ColorTable) ForState(state string) string {
	if id, ok := t.States[state]; ok {
		return strconv.Itoa(id)
	}
	switch state {
	case "EXAM":
		return strconv.Itoa(t.Exam)
	case "STANDARD":
		return strconv.Itoa(t.Standard)
	}
	return strconv.Itoa(t.StandardMinusOne())
}

// IsExam reports whether a color ID is the exam color.
func (t ColorTable) IsExam(colorID string) bool {
	return colorID == strconv.Itoa(t.Exam)
}

// Owned returns the set of color IDs this tool considers its own.
// Events carrying any other color are never matched or touched.
func (t ColorTable) Owned() map[string]bool {
	return map[string]bool{
		strconv.Itoa(t.Standard):           true,
		strconv.Itoa(t.Exam):               true,
		strconv.Itoa(t.StandardMinusOne()): true,
	}
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the OAuth callback endpoint.
	Listen string `yaml:"listen"`

	// Schedule is a cron expression controlling how often a sync runs.
	Schedule string `yaml:"schedule"`

	// WeekCount is the total week-window count; count-1 windows are
	// actually scanned, so a value of 1 disables syncing entirely.
	WeekCount int `yaml:"week_count"`

	// Timezone is the IANA location lesson times are anchored in.
	Timezone string `yaml:"timezone"`

	// CalendarID is the Google Calendar written to.
	CalendarID string `yaml:"calendar_id"`

	// RedirectURL is the OAuth redirect registered for this app; it should
	// point back at this server's root endpoint.
	RedirectURL string `yaml:"redirect_url"`

	TokenPath             string `yaml:"token_path"`
	GoogleCredentialsPath string `yaml:"google_credentials_path"`

	Untis  UntisConfig `yaml:"untis"`
	Colors ColorTable  `yaml:"colors"`
}

// DefaultConfig returns the in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		Schedule:  "0 */2 * * *",
		WeekCount: 3,
		Timezone:  "Europe/Berlin",
		TokenPath: "token.json",
		Colors: ColorTable{
			Standard: 10,
			Exam:     11,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled config files still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Schedule == "" {
		c.Schedule = def.Schedule
	}
	if c.WeekCount == 0 {
		c.WeekCount = def.WeekCount
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.TokenPath == "" {
		c.TokenPath = def.TokenPath
	}
	if c.RedirectURL == "" {
		c.RedirectURL = "http://" + c.Listen + "/"
	}
	if c.Colors.Standard == 0 {
		c.Colors.Standard = def.Colors.Standard
	}
	if c.Colors.Exam == 0 {
		c.Colors.Exam = def.Colors.Exam
	}
}

// Validate checks that all required settings are present.
func (c *Config) Validate() error {
	if c.CalendarID == "" {
		return fmt.Errorf("calendar_id must be set")
	}
	if c.GoogleCredentialsPath == "" {
		return fmt.Errorf("google_credentials_path must be set")
	}
	if c.WeekCount < 1 {
		return fmt.Errorf("week_count must be at least 1, got %d", c.WeekCount)
	}
	if c.Untis.Host == "" || c.Untis.School == "" {
		return fmt.Errorf("untis host and school must be set")
	}
	if c.Untis.Username == "" || c.Untis.Password == "" {
		return fmt.Errorf("untis username and password must be set")
	}
	return nil
}

// Location returns the configured timezone location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadConfig loads the YAML config file, applies environment variable
// overrides, fills in defaults, then validates.
//
// Environment overrides (useful for keeping secrets out of the file):
//
//	UNTIS_PASSWORD            WebUntis account password
//	GOOGLE_CREDENTIALS_PATH   Path to the Google OAuth credentials JSON
//	TOKEN_PATH                Path to the persisted OAuth token
//	CALENDAR_ID               Target Google Calendar ID
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if password := os.Getenv("UNTIS_PASSWORD"); password != "" {
		config.Untis.Password = password
	}
	if credentialsPath := os.Getenv("GOOGLE_CREDENTIALS_PATH"); credentialsPath != "" {
		config.GoogleCredentialsPath = credentialsPath
	}
	if tokenPath := os.Getenv("TOKEN_PATH"); tokenPath != "" {
		config.TokenPath = tokenPath
	}
	if calendarID := os.Getenv("CALENDAR_ID"); calendarID != "" {
		config.CalendarID = calendarID
	}

	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
