package main

import (
	"flag"
	"log"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to YAML config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config if set)")
	flag.Parse()

	// Set up logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration (file + env overrides + defaults)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		config.Listen = *listen
	}

	loc, err := config.Location()
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	// Load Google OAuth credentials from the credentials file
	clientID, clientSecret, err := LoadGoogleCredentials(config.GoogleCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to load Google credentials: %v", err)
	}

	googleOAuthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			calendar.CalendarScope,
			calendar.CalendarEventsScope,
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	// Wire the collaborators
	tokenStore := NewFileTokenStore(config.TokenPath)
	tokens := NewTokenManager(googleOAuthConfig, tokenStore)
	untisClient := NewUntis(config.Untis)
	calendarClient := NewGoogleCalendar(tokens)
	syncer := NewSyncer(untisClient, calendarClient, config, loc)
	server := NewServer(config, tokens, syncer)

	// Start the schedule immediately when a credential already exists;
	// otherwise wait for the OAuth redirect to complete authorization.
	if tokens.Authorized() {
		log.Println("Credential found, starting schedule")
		if err := server.StartSchedule(); err != nil {
			log.Fatalf("Failed to start schedule: %v", err)
		}
	} else {
		log.Println("No credential found, waiting for authorization")
		log.Printf("Authorize at: %s", tokens.AuthURL())
	}

	log.Printf("Listening on %s", config.Listen)
	if err := http.ListenAndServe(config.Listen, server.Handler()); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
