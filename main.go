package main

import "github.com/attendly/attendly/cmd"

func main() {
	cmd.Execute()
}
