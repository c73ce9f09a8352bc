package main

import "github.com/EmanAguilera/fiambond/internal/cli"

func main() {
	cli.Execute()
}
