package main

import "github.com/kozaktomas/spyhole/cmd"

func main() {
	cmd.Execute()
}
