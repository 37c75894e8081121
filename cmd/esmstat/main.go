// Package main provides the entry point for the esmstat CLI tool.
package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/cmd/esmstat/commands"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
