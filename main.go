package main

import "github.com/nn1ks/lsfbot/cmd"

func main() {
	cmd.Execute()
}
