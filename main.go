package main

import "github.com/tanq16/chunkr/cmd"

func main() {
	cmd.Execute()
}
