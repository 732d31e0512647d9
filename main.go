package main

import "github.com/agentic-research/mache/cmd"

func main() {
	cmd.Execute()
}
