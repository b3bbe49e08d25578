package main

import "github.com/emiliopalmerini/mlab/internal/cli"

func main() {
	cli.Execute()
}
