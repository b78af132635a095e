package main

import "github.com/duetchat/duet/internal/cli"

func main() {
	cli.Execute()
}
