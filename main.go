package main

import "github.com/notargets/femtk/cmd"

func main() {
	cmd.Execute()
}
