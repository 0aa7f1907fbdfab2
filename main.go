package main

import (
	"github.com/ecbconv/ecbconv/cmd"
)

func main() {
	cmd.Execute()
}
