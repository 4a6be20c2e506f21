// Command proxygen writes typed interception proxies for Go interfaces.
//
// Typical use is through go:generate next to the interface:
//
//	//go:generate go run github.com/GoCodeAlone/interception/cmd/proxygen generate --type Store
package main

import (
	"fmt"
	"os"

	"github.com/GoCodeAlone/interception/cmd/proxygen/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
