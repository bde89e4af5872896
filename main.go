package main

import "github.com/mcastellin/gossip-detector/cmd"

func main() {
	cmd.Execute()
}
