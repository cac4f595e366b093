package main

import "github.com/devforge/devforge/cmd"

func main() {
	cmd.Execute()
}
