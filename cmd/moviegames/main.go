package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/SublimeCT/movie-games/internal/cli"
)

func main() {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()

	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own error output; the exit code is all
		// that is left to propagate.
		os.Exit(cli.GetExitCode(err))
	}
}
