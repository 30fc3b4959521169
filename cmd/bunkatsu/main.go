// Package main is the bunkatsu CLI entry point.
package main

import "os"

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
