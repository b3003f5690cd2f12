package main

import "go.wheelz.io/wchain/cmd/wchaincli/commands"

func main() {
	commands.Execute()
}
