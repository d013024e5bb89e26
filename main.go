package main

import (
	"github.com/metal-toolbox/dutfw/cmd"
)

func main() {
	cmd.Execute()
}
