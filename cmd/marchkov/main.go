package main

import "github.com/example/marchkov/cmd"

func main() {
	cmd.Execute()
}
