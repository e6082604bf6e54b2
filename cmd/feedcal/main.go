package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"feedcal/internal/auth"
	"feedcal/internal/calendar"
	"feedcal/internal/config"
	"feedcal/internal/feed"
	"feedcal/internal/sync"

	"golang.org/x/oauth2"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `Feed Calendar Reconciler

A batch job that reconciles a remote JSON event feed with a calendar,
so the calendar's contents converge to match the feed. Events created by
this tool carry an identity tag; pre-existing events without the tag are
never touched.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help                    Show this help message and exit
    -v, --verbose                 Enable verbose output (show DEBUG logs)
    --config FILE                 Path to JSON config file (optional)
    --calendar-id ID              Target calendar: Google calendar id, or the
                                  calendar collection path for CalDAV
                                  (overrides config file and CALENDAR_ID env var)
    --feed-url URL                URL of the JSON event feed
                                  (overrides config file and FEED_URL env var)
    --google-credentials-path PATH Path to Google OAuth credentials JSON file
                                  (overrides config file and GOOGLE_CREDENTIALS_PATH env var)
    --token-path PATH             Path to store the OAuth token
                                  (overrides config file and TOKEN_PATH env var)

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables
    3. Config file (--config)
    4. Defaults

CONFIG FILE:
    All settings can be specified in a JSON config file. Example:
    {
      "calendar_id": "abc123@group.calendar.google.com",
      "feed_url": "https://example.com/events.json",
      "timezone": "Asia/Tokyo",
      "tag_key": "calendar-sync-id",
      "store": "google",
      "google_credentials_path": "/path/to/credentials.json",
      "token_path": "/path/to/token.json"
    }

    For a CalDAV calendar instead:
    {
      "calendar_id": "/123456/calendars/feed/",
      "feed_url": "https://example.com/events.json",
      "store": "caldav",
      "caldav_server_url": "https://caldav.icloud.com",
      "caldav_username": "your-email@icloud.com",
      "caldav_password": "app-specific-password"
    }

ENVIRONMENT VARIABLES:
    CALENDAR_ID, FEED_URL, TIMEZONE, TAG_KEY, STORE,
    GOOGLE_CREDENTIALS_PATH, TOKEN_PATH,
    CALDAV_SERVER_URL, CALDAV_USERNAME, CALDAV_PASSWORD

FEED FORMAT:
    The feed is a JSON document:
    {
      "start": "2024-05-01T00:00:00+09:00",
      "end": "2024-05-31T00:00:00+09:00",
      "events": [
        { "id": "x1", "title": "Standup", "description": "",
          "noTime": true, "start": "2024-05-01", "end": "2024-05-01" }
      ]
    }

DESCRIPTION:
    One invocation performs one reconciliation pass: fetch the feed, list
    tagged calendar events within the feed's range, then create, update,
    and delete calendar events until the calendar matches the feed.
    Duplicate calendar events sharing an identity tag are deleted.

    The pass is idempotent: re-running after a partial failure recomputes
    the remaining diff. Any fetch or store failure aborts the run.

    On first run against Google Calendar, you will be prompted to
    authorize via OAuth 2.0. Subsequent runs use the stored refresh token.

EXAMPLES:
    # Run with a config file
    %s --config /path/to/config.json

    # Run against a different feed without editing the config
    %s --config /path/to/config.json --feed-url https://example.com/staging.json

    # Run entirely from environment variables
    CALENDAR_ID=... FEED_URL=... GOOGLE_CREDENTIALS_PATH=... TOKEN_PATH=... %s

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output (show DEBUG logs)")
	verboseFlagShort := flag.Bool("v", false, "Enable verbose output (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	calendarID := flag.String("calendar-id", "", "Target calendar id (overrides config file and CALENDAR_ID env var)")
	feedURL := flag.String("feed-url", "", "URL of the JSON event feed (overrides config file and FEED_URL env var)")
	googleCredentialsPath := flag.String("google-credentials-path", "", "Path to Google OAuth credentials JSON file (overrides config file and GOOGLE_CREDENTIALS_PATH env var)")
	tokenPath := flag.String("token-path", "", "Path to store the OAuth token (overrides config file and TOKEN_PATH env var)")
	flag.Parse()

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}
	verbose := *verboseFlag || *verboseFlagShort

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configFile, *calendarID, *feedURL, *googleCredentialsPath, *tokenPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create calendar store: %v", err)
	}

	fetcher := feed.NewFetcher(&http.Client{Timeout: 30 * time.Second}, cfg.FeedURL, cfg.Location())

	syncer := sync.NewSyncer(fetcher, store, cfg.TagKey, cfg.Location(), verbose)
	if err := syncer.Sync(ctx); err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	log.Println("Reconciliation completed successfully.")
}

// newStore builds the configured calendar store backend.
func newStore(ctx context.Context, cfg *config.Config) (calendar.Store, error) {
	if cfg.Store == "caldav" {
		return calendar.NewCalDAVStore(cfg.CalDAVServerURL, cfg.CalendarID, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.Location()), nil
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	httpClient, err := auth.Client(ctx, oauthConfig, auth.NewFileTokenStore(cfg.TokenPath))
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	return calendar.NewGoogleStore(ctx, httpClient, cfg.CalendarID, cfg.Location())
}
