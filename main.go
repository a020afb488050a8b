package main

import "coop-loans/cli"

func main() {
	cli.Execute()
}
