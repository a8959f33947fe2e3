package main

import "oracle-panel/internal/cli"

func main() {
	cli.Execute()
}
