package main

import (
	"log/slog"
	"os"

	"github.com/anhbaysgalan1/holdem/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	// JSON logs in production, text elsewhere
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	if os.Getenv("ENVIRONMENT") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	pokerServer, err := server.NewPokerServer()
	if err != nil {
		slog.Error("Failed to create poker server", "error", err)
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM
	if err := pokerServer.Start(); err != nil {
		slog.Error("Poker server stopped with error", "error", err)
		os.Exit(1)
	}
}
