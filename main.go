package main

import "stacksignal/cmd"

func main() {
	cmd.Execute()
}
