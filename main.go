package main

import "github.com/kamusis/pcapcat/cmd"

func main() {
	cmd.Execute()
}
