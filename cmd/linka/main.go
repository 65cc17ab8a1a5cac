// Command linka runs the Linka server and its file tools.
package main

import (
	"fmt"
	"os"

	"linka/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
