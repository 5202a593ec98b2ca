// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/cachetransporter/cmd/cache-transporter/cmd"
)

func main() {
	cmd.Execute()
}
