package main

import "eventapi/cmd"

func main() {
	cmd.Execute()
}
