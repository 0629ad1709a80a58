package main

import (
	"os"

	"github.com/MichealReed/miniav/internal/cli"

	_ "github.com/MichealReed/miniav/backend/portal"
	_ "github.com/MichealReed/miniav/backend/synthetic"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
