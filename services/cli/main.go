package main

import (
	"fmt"
	"os"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/logger"
)

func main() {
	err := rootCmd.Execute()
	if app != nil {
		app.close()
	}
	logger.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", apiclient.UserMessage(err))
		os.Exit(1)
	}
}
