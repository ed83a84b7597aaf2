package main

import "github.com/information-sharing-networks/codi-gateway/internal/cli"

func main() {
	cli.Execute()
}
