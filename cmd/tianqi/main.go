package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tianqilab/tianqi/internal/cli"
)

func main() {
	// A missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
