// Command openrpc-generator generates TypeScript clients and Go server stubs
// from OpenRPC documents.
package main

import (
	"fmt"
	"os"

	"github.com/dusansimic/openrpc-generator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
