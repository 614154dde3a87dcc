package main

import "github.com/emrgen/revision/cmd"

func main() {
	cmd.Execute()
}
