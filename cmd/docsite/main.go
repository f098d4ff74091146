package main

import (
	"fmt"

	"git.home.luguber.info/inful/docsite/cmd/docsite/commands"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/version"
	"github.com/alecthomas/kong"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("docsite"),
		kong.Description("Documentation site manifest toolkit: validate, format, and apply docsite.yaml."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("docsite %s (commit %s, built %s)",
			version.Version, version.GitCommit, version.BuildTime)},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		derrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
