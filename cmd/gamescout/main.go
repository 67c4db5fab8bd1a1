package main

import "github.com/holos-run/gamescout/cmd/gamescout/commands"

func main() {
	commands.Execute()
}
