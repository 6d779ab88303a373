package main

import (
	"fmt"
	"os"

	mcli "github.com/mitchellh/cli"

	chandycli "github.com/gopherlabs/chandysim/cli"
)

// GitCommit is filled in by the compiler at release build time.
var GitCommit string

// Version is the current chandysim version.
const Version = "0.1.0"

// VersionPrerelease marks this as a pre-release build when non-empty.
const VersionPrerelease = "dev"

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ui := &mcli.BasicUi{Writer: os.Stdout, ErrorWriter: os.Stderr}

	c := mcli.NewCLI("chandysim", Version)
	c.Args = os.Args[1:]
	c.Commands = map[string]mcli.CommandFactory{
		"run": func() (mcli.Command, error) {
			return &chandycli.RunCommand{Ui: ui}, nil
		},
		"version": func() (mcli.Command, error) {
			return &chandycli.VersionCommand{
				Revision:          GitCommit,
				Version:           Version,
				VersionPrerelease: VersionPrerelease,
				Ui:                ui,
			}, nil
		},
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
		return 1
	}
	return exitCode
}
