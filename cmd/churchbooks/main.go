package main

import (
	"context"
	"os"

	"github.com/eshaffer321/churchbooks-backend/internal/cli"
)

func main() {
	// cobra already printed the error
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
