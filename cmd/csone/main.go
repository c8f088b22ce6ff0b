package main

import "csone/cmd/cli"

func main() {
	cli.Execute()
}
