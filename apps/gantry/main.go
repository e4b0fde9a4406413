package main

import "github.com/moturus/gantry/apps/gantry/cmd"

func main() {
	cmd.Execute()
}
