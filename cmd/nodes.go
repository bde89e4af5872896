package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var flagNodesHTTPAddr string

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "print a running node's membership view from its HTTP status endpoint",
	RunE:  runNodes,
}

func init() {
	nodesCmd.Flags().StringVar(&flagNodesHTTPAddr, "http", "", "HTTP status address of a running node (required)")
	nodesCmd.MarkFlagRequired("http")

	rootCmd.AddCommand(nodesCmd)
}

func runNodes(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/nodes", flagNodesHTTPAddr))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
