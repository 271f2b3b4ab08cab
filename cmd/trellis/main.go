// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/trellis/cmd/trellis/cmd"
)

func main() {
	cmd.Execute()
}
