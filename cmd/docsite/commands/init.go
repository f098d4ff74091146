package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docsite/internal/manifest"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing manifest file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Printf("Writing manifest to %s\n", root.Config)
	if err := manifest.Init(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Println("initialized successfully")
	return nil
}
