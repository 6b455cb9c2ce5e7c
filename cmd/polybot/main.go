// polybot: a Telegram bot that applies image effects named in photo captions.
//
// Usage:
//
//	polybot serve                    # Run the bot behind a webhook
//	polybot apply "blur 8" in.jpg    # Apply a caption to a local image
//	polybot check "rotate 180"       # Report what a caption would do
//	polybot grammar                  # Print the effect grammar
//	polybot test ./scenarios         # Run conversation scenarios
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/polybot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own failures; anything else came from cobra.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
