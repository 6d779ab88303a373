package cli

import (
	"bytes"
	"fmt"

	mcli "github.com/mitchellh/cli"
)

// VersionCommand prints the chandysim version. Grounded on
// cli/command_version.go.
type VersionCommand struct {
	Revision          string
	Version           string
	VersionPrerelease string
	Ui                mcli.Ui
}

func (c *VersionCommand) Help() string {
	return ""
}

func (c *VersionCommand) Run(_ []string) int {
	var versionString bytes.Buffer
	fmt.Fprintf(&versionString, "chandysim v%s", c.Version)
	if c.VersionPrerelease != "" {
		fmt.Fprintf(&versionString, "-%s", c.VersionPrerelease)
		if c.Revision != "" {
			fmt.Fprintf(&versionString, " (%s)", c.Revision)
		}
	}
	c.Ui.Output(versionString.String())
	return 0
}

func (c *VersionCommand) Synopsis() string {
	return "Prints the chandysim version"
}
