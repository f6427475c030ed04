package main

import "github.com/shinyyama/marketplace-backend/cmd/catalogctl/commands"

func main() {
	commands.Execute()
}
