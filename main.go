package main

import (
	"github.com/redsail/redsail/cmd"
)

func main() {
	cmd.Execute()
}
