package main

import "github.com/oshokin/autopak/cmd/autopak/cmd"

func main() {
	cmd.Execute()
}
