// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "stackctl/cmd/stackctl"
	"stackctl/internal/logging"
)

func main() {
	logging.Setup()
	cmd.Execute()
}
