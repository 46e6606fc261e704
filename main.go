package main

import (
	cmd "github.com/cryptopulse/signalpipe/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
