package main

import "github.com/tanq16/tgytdl/cmd"

func main() {
	cmd.Execute()
}
