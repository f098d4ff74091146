package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/versions"
)

// VersionsCmd groups the version inventory operations.
type VersionsCmd struct {
	File string `short:"f" default:"versions.json" help:"Inventory file path"`

	List  VersionsListCmd  `cmd:"" default:"1" help:"Print the version inventory"`
	Add   VersionsAddCmd   `cmd:"" help:"Add a version entry (idempotent, newest first)"`
	Alias VersionsAliasCmd `cmd:"" help:"Assign an alias to a version, stealing it if already taken"`
	Prune VersionsPruneCmd `cmd:"" help:"Retain only the N newest numeric versions"`
	Scan  VersionsScanCmd  `cmd:"" help:"Merge release tags from a git repository into the inventory"`
}

// VersionsListCmd prints entries newest first.
type VersionsListCmd struct{}

func (c *VersionsListCmd) Run(parent *VersionsCmd, _ *Global, _ *CLI) error {
	set, err := versions.Load(parent.File)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		fmt.Println("no versions recorded")
		return nil
	}
	for _, e := range set.Entries() {
		line := e.Version
		if e.Title != "" && e.Title != e.Version {
			line += "  " + e.Title
		}
		if len(e.Aliases) > 0 {
			line += "  [" + strings.Join(e.Aliases, ", ") + "]"
		}
		fmt.Println(line)
	}
	return nil
}

// VersionsAddCmd records one deployed version.
type VersionsAddCmd struct {
	Version string `arg:"" help:"Version identifier (e.g. v1.2.0)"`
	Title   string `help:"Display title shown by the version selector"`
}

func (c *VersionsAddCmd) Run(parent *VersionsCmd, _ *Global, _ *CLI) error {
	set, err := versions.Load(parent.File)
	if err != nil {
		return err
	}
	set.Add(c.Version, c.Title)
	return set.Save(parent.File)
}

// VersionsAliasCmd reassigns an alias such as "latest" or "stable".
type VersionsAliasCmd struct {
	Version string `arg:"" help:"Version receiving the alias"`
	Alias   string `arg:"" help:"Alias name"`
}

func (c *VersionsAliasCmd) Run(parent *VersionsCmd, _ *Global, _ *CLI) error {
	set, err := versions.Load(parent.File)
	if err != nil {
		return err
	}
	if err := set.Alias(c.Version, c.Alias); err != nil {
		return err
	}
	return set.Save(parent.File)
}

// VersionsPruneCmd drops the oldest numeric versions.
type VersionsPruneCmd struct {
	Keep int `default:"5" help:"Number of numeric versions to retain"`
}

func (c *VersionsPruneCmd) Run(parent *VersionsCmd, _ *Global, _ *CLI) error {
	set, err := versions.Load(parent.File)
	if err != nil {
		return err
	}
	removed := set.Prune(c.Keep)
	if err := set.Save(parent.File); err != nil {
		return err
	}
	for _, v := range removed {
		fmt.Printf("pruned %s\n", v)
	}
	fmt.Printf("%d version(s) retained\n", set.Len())
	return nil
}

// VersionsScanCmd discovers versions from git release tags.
type VersionsScanCmd struct {
	Repo string `default:"." help:"Git repository to scan for release tags"`
}

func (c *VersionsScanCmd) Run(parent *VersionsCmd, _ *Global, _ *CLI) error {
	set, err := versions.Load(parent.File)
	if err != nil {
		return err
	}
	added, err := set.Scan(c.Repo)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		fmt.Println("inventory already up to date")
		return nil
	}
	if err := set.Save(parent.File); err != nil {
		return err
	}
	for _, v := range added {
		fmt.Printf("added %s\n", v)
	}
	return nil
}
