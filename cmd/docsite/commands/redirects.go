package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/docsite/internal/redirects"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

// RedirectsCmd groups the redirect table operations.
type RedirectsCmd struct {
	Emit  RedirectsEmitCmd  `cmd:"" help:"Write redirect stub pages into the built site"`
	Check RedirectsCheckCmd `cmd:"" help:"Verify emitted stubs against the manifest's redirect table"`
	List  RedirectsListCmd  `cmd:"" default:"1" help:"Print the redirect table"`
}

// RedirectsEmitCmd writes one HTML stub per redirect entry.
type RedirectsEmitCmd struct {
	Site string `short:"s" default:"./site" help:"Built site directory"`
}

func (c *RedirectsEmitCmd) Run(_ *Global, root *CLI) error {
	m, _, err := loadManifest(root)
	if err != nil {
		return err
	}
	written, err := redirects.NewEmitter(c.Site).Emit(m.Redirects())
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d redirect stub(s) under %s\n", written, c.Site)
	return nil
}

// RedirectsCheckCmd re-parses emitted stubs and confirms their targets.
type RedirectsCheckCmd struct {
	Site   string `short:"s" default:"./site" help:"Built site directory"`
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (c *RedirectsCheckCmd) Run(_ *Global, root *CLI) error {
	m, _, err := loadManifest(root)
	if err != nil {
		return err
	}
	result := redirects.NewVerifier(c.Site).Verify(m.Redirects())
	if err := validate.NewFormatter(c.Format).Format(os.Stdout, result, root.Config); err != nil {
		return err
	}
	if result.HasErrors() {
		os.Exit(2)
	}
	return nil
}

// RedirectsListCmd prints the table in manifest order.
type RedirectsListCmd struct{}

func (c *RedirectsListCmd) Run(_ *Global, root *CLI) error {
	m, _, err := loadManifest(root)
	if err != nil {
		return err
	}
	table := m.Redirects()
	if len(table) == 0 {
		fmt.Println("no redirects configured")
		return nil
	}
	for _, r := range table {
		fmt.Printf("%s -> %s  (%s)\n", r.From, r.To, redirects.HTMLPath(r.From))
	}
	return nil
}
