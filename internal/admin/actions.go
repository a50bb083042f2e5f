// Package admin implements ledger maintenance: init, backup, verify.
package admin

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/common"
)

func InitAction(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("admin init: %v", err), 2)
	}
	defer app.Close()

	// Open already created the schema; make the outcome explicit.
	if err := app.Ledger.InitSchema(); err != nil {
		return cli.Exit(fmt.Sprintf("admin init: %v", err), 2)
	}
	fmt.Printf("ledger ready at %s\n", app.Ledger.Path())
	return nil
}

func BackupAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("admin backup: give a destination path", 2)
	}
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("admin backup: %v", err), 2)
	}
	defer app.Close()

	dest := c.Args().First()
	if err := app.Ledger.Backup(dest); err != nil {
		return cli.Exit(fmt.Sprintf("admin backup: %v", err), 2)
	}
	fmt.Printf("ledger backed up to %s\n", dest)
	return nil
}

func VerifyAction(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("admin verify: %v", err), 2)
	}
	defer app.Close()

	if err := app.Ledger.Verify(); err != nil {
		return cli.Exit(fmt.Sprintf("admin verify: %v", err), 2)
	}
	fmt.Println("ledger integrity ok")
	return nil
}
