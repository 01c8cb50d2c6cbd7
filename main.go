package main

import "github.com/slowstore/slowstore/cmd"

func main() {
	cmd.Execute()
}
