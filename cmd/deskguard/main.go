package main

import "github.com/fernandezvara/deskguard/cmd/deskguard/commands"

func main() {
	commands.Execute()
}
