package main

import "pixelperfect/cmd"

func main() {
	cmd.Execute()
}
