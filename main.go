package main

import "github.com/Rorical/RoriLens/cmd"

func main() {
	cmd.Execute()
}
