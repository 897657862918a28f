package main

import "github.com/mirofic/fetchr/cmd"

func main() {
	cmd.Execute()
}
