package main

import "github.com/kozaktomas/face-attend/cmd"

func main() {
	cmd.Execute()
}
