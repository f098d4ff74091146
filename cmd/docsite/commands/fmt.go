package commands

import (
	"bytes"
	"fmt"
	"os"

	"git.home.luguber.info/inful/docsite/internal/manifest"
)

// FmtCmd implements the 'fmt' command: an order-preserving re-serialization
// of the manifest. Environment references are deliberately not expanded so
// the rewritten file keeps its ${VAR} placeholders.
type FmtCmd struct {
	Write bool `short:"w" help:"Rewrite the manifest file in place"`
	Check bool `help:"Exit non-zero when the manifest is not already formatted"`
}

// Run executes the fmt command.
func (f *FmtCmd) Run(_ *Global, root *CLI) error {
	data, err := os.ReadFile(root.Config)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := manifest.Decode(data)
	if err != nil {
		return err
	}

	formatted, err := manifest.Encode(m)
	if err != nil {
		return err
	}

	switch {
	case f.Check:
		if !bytes.Equal(data, formatted) {
			fmt.Printf("%s is not formatted\n", root.Config)
			os.Exit(1)
		}
	case f.Write:
		info, err := os.Stat(root.Config)
		if err != nil {
			return err
		}
		if err := os.WriteFile(root.Config, formatted, info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to rewrite manifest: %w", err)
		}
	default:
		if _, err := os.Stdout.Write(formatted); err != nil {
			return err
		}
	}
	return nil
}
