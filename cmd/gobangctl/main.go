package main

import "github.com/mcoot/gobang-online/internal/cli"

func main() {
	cli.Execute()
}
