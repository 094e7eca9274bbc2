package main

import "github.com/phonginreallife/rentdesk/internal/cli"

func main() {
	cli.Execute()
}
