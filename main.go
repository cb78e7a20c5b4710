package main

import "github.com/nanalive/randomchat/cmd"

func main() {
	cmd.Execute()
}
