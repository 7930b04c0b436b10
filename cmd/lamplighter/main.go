package main

import "github.com/jason790/lamplighter/cmd/lamplighter/cmd"

func main() {
	cmd.Execute()
}
