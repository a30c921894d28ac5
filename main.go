package main

import "github.com/KaramelBytes/vidnarr-cli/cmd"

func main() {
	cmd.Execute()
}
