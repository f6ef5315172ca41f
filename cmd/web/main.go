package main

import (
	"log/slog"
	"os"

	"gamestats/internal/server"
)

func main() {
	if err := server.Run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
