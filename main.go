package main

import "github.com/kozaktomas/face-detection/cmd"

func main() {
	cmd.Execute()
}
