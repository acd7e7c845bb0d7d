package main

import (
	_ "embed"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/limburgnet-tools/ophaalkalender/internal/app"
	"github.com/limburgnet-tools/ophaalkalender/internal/commands"
)

//go:embed static/index.html
var indexHTML []byte

func main() {
	// Check for subcommands
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		commands.HashPassword(os.Args[2:])
		return
	}

	// Parse flags
	port := flag.Int("port", 8080, "Port to listen on")
	flag.Parse()

	// Environment configuration, optionally from a .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	if err := app.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Make embedded files available to app package
	app.IndexHTML = indexHTML

	// Load auth credentials for the admin endpoints
	if err := app.LoadAuthCredentials(); err != nil {
		log.Fatalf("Failed to load auth credentials: %v", err)
	}

	// Serve the last good schedule from the cache until the first refresh
	if err := app.LoadCachedSnapshot(); err != nil {
		log.Printf("Warning: could not load snapshot cache: %v", err)
	}

	// First refresh; a failure is not fatal, the scheduler retries
	if err := app.Refresh(); err != nil {
		log.Printf("Initial refresh failed: %v", err)
	}

	scheduler := app.NewScheduler()
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Setup routes
	http.HandleFunc("/", app.ServeIndex)
	http.HandleFunc("/api/config", app.GetConfig)
	http.HandleFunc("/api/status", app.HandleStatus)
	http.HandleFunc("/api/next", app.HandleNext)
	http.HandleFunc("/api/next/", app.HandleNextFor)
	http.HandleFunc("/api/upcoming/", app.HandleUpcomingFor)
	http.HandleFunc("/api/pickups", app.HandlePickups)
	http.HandleFunc("/api/download", app.HandleDownload)
	http.HandleFunc("/api/subscribe", app.HandleSubscribe)

	// Admin routes (protected with Basic Auth)
	http.HandleFunc("/api/refresh", app.RequireAuth(app.HandleRefresh))
	http.HandleFunc("/api/upload", app.RequireAuth(app.HandleUpload))

	log.Printf("Starting Ophaalkalender on http://localhost:%d", *port)
	log.Printf("Source: %s (%s), refresh every %s", app.SourceType, app.SourceValue, app.UpdateInterval)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		log.Fatal(err)
	}
}
