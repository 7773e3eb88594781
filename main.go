package main

import "github.com/amalgam-dev/amalgam/cmd"

func main() {
	cmd.Execute()
}
