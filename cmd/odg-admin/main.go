// Command odg-admin is the operator CLI for a running odg gateway.
package main

import (
	"github.com/opendgw/odg/cmd/cli"
)

func main() {
	cli.Execute()
}
