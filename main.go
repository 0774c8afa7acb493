package main

import "github.com/jsphweid/improv/cmd"

func main() {
	cmd.Execute()
}
