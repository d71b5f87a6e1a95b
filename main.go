package main

import "github.com/crossarb/crossarb/cmd"

func main() {
	cmd.Execute()
}
