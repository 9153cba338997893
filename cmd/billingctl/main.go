// Package main is the entry point for the billingctl CLI.
package main

import (
	"os"

	"github.com/JonMunkholm/billing/cmd/billingctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
