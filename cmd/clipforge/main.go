package main

import "clipforge/internal/cli"

func main() {
	cli.Main()
}
