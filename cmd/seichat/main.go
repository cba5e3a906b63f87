package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ggonzalez94/seichat/internal/app"
)

func main() {
	// A missing .env is fine; the shell environment still applies.
	_ = godotenv.Load()
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
