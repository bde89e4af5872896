// Package cmd implements the command-line surface for the gossip
// failure detector: a root command plus serve/nodes subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const usage = `A gossip-style failure detector node.

EXAMPLES:
  Start a node that seeds off two peers:
    gossipd serve --bind 127.0.0.1:9000 --seed 127.0.0.1:9001 --seed 127.0.0.1:9002

  Inspect a running node's membership view over its HTTP status endpoint:
    gossipd nodes --http 127.0.0.1:9100`

var rootCmd = &cobra.Command{
	Use:   "gossipd",
	Short: "A peer-to-peer gossip failure detector",
	Long:  usage,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
