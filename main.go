package main

import "github.com/kozaktomas/photoface/cmd"

func main() {
	cmd.Execute()
}
