package main

import "github.com/kozaktomas/bundy-kiosk/cmd"

func main() {
	cmd.Execute()
}
