package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultTimezone is the fixed zone used for all comparison and
	// display within a run unless configured otherwise.
	DefaultTimezone = "Asia/Tokyo"

	// DefaultTagKey is the identity tag key attached to calendar events
	// to correlate them with feed items.
	DefaultTagKey = "calendar-sync-id"
)

// Error reports a missing or invalid configuration setting. It is fatal
// before any fetch or reconciliation starts.
type Error struct {
	Setting string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Setting, e.Reason)
}

func missing(setting, envVar, flagName string) error {
	return &Error{
		Setting: setting,
		Reason:  fmt.Sprintf("must be provided via --%s flag, %s environment variable, or config file", flagName, envVar),
	}
}

// GoogleCredentials represents the structure of a Google OAuth credentials
// JSON file as downloaded from Google Cloud Console.
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

// Config holds the configuration for the feed reconciliation job.
type Config struct {
	// CalendarID identifies the target calendar: a Google calendar id for
	// the google store, or the calendar collection path for caldav.
	CalendarID string `json:"calendar_id"`
	FeedURL    string `json:"feed_url"`

	Timezone string `json:"timezone,omitempty"` // default: Asia/Tokyo
	TagKey   string `json:"tag_key,omitempty"`  // default: calendar-sync-id
	Store    string `json:"store,omitempty"`    // "google" (default) or "caldav"

	// Google Calendar store settings
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	TokenPath             string `json:"token_path,omitempty"`

	// CalDAV store settings
	CalDAVServerURL string `json:"caldav_server_url,omitempty"`
	CalDAVUsername  string `json:"caldav_username,omitempty"`
	CalDAVPassword  string `json:"caldav_password,omitempty"`

	loc *time.Location
}

// Location returns the parsed fixed time zone.
func (c *Config) Location() *time.Location {
	return c.loc
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to
// lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile string, calendarIDFlag, feedURLFlag, googleCredentialsPathFlag, tokenPathFlag string) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	for _, override := range []struct {
		envVar string
		field  *string
	}{
		{"CALENDAR_ID", &config.CalendarID},
		{"FEED_URL", &config.FeedURL},
		{"TIMEZONE", &config.Timezone},
		{"TAG_KEY", &config.TagKey},
		{"STORE", &config.Store},
		{"GOOGLE_CREDENTIALS_PATH", &config.GoogleCredentialsPath},
		{"TOKEN_PATH", &config.TokenPath},
		{"CALDAV_SERVER_URL", &config.CalDAVServerURL},
		{"CALDAV_USERNAME", &config.CalDAVUsername},
		{"CALDAV_PASSWORD", &config.CalDAVPassword},
	} {
		if value := os.Getenv(override.envVar); value != "" {
			*override.field = value
		}
	}

	// Step 3: Override with command-line flags (highest priority)
	if calendarIDFlag != "" {
		config.CalendarID = calendarIDFlag
	}
	if feedURLFlag != "" {
		config.FeedURL = feedURLFlag
	}
	if googleCredentialsPathFlag != "" {
		config.GoogleCredentialsPath = googleCredentialsPathFlag
	}
	if tokenPathFlag != "" {
		config.TokenPath = tokenPathFlag
	}

	// Step 4: Apply defaults and validate required fields
	if config.CalendarID == "" {
		return nil, missing("calendar_id", "CALENDAR_ID", "calendar-id")
	}
	if config.FeedURL == "" {
		return nil, missing("feed_url", "FEED_URL", "feed-url")
	}

	if config.Timezone == "" {
		config.Timezone = DefaultTimezone
	}
	if config.TagKey == "" {
		config.TagKey = DefaultTagKey
	}
	if config.Store == "" {
		config.Store = "google"
	}

	switch config.Store {
	case "google":
		if config.GoogleCredentialsPath == "" {
			return nil, missing("google_credentials_path", "GOOGLE_CREDENTIALS_PATH", "google-credentials-path")
		}
		if config.TokenPath == "" {
			return nil, missing("token_path", "TOKEN_PATH", "token-path")
		}
	case "caldav":
		if config.CalDAVServerURL == "" {
			return nil, missing("caldav_server_url", "CALDAV_SERVER_URL", "config")
		}
		if config.CalDAVUsername == "" {
			return nil, missing("caldav_username", "CALDAV_USERNAME", "config")
		}
		if config.CalDAVPassword == "" {
			return nil, missing("caldav_password", "CALDAV_PASSWORD", "config")
		}
	default:
		return nil, &Error{Setting: "store", Reason: fmt.Sprintf("must be 'google' or 'caldav', got '%s'", config.Store)}
	}

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, &Error{Setting: "timezone", Reason: fmt.Sprintf("unknown time zone '%s'", config.Timezone)}
	}
	config.loc = loc

	return &config, nil
}
