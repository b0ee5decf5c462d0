// Copyright 2022 The go-syncdoc Authors
// This file is part of go-syncdoc.
//
// go-syncdoc is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-syncdoc is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-syncdoc. If not, see <http://www.gnu.org/licenses/>.

// syncdoc is a file-level tool over stored documents: inspect their
// change history, merge saved files and maintain a docdb store.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/syncdoc/go-syncdoc/core"
	"github.com/syncdoc/go-syncdoc/docdb"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory of the document store",
	}

	inspectCommand = cli.Command{
		Action:    inspect,
		Name:      "inspect",
		Usage:     "Print the change history of a saved document",
		ArgsUsage: "<file>",
	}
	mergeCommand = cli.Command{
		Action:    merge,
		Name:      "merge",
		Usage:     "Merge two saved documents into one",
		ArgsUsage: "<file> <file> <out>",
	}
	importCommand = cli.Command{
		Action:    importDoc,
		Name:      "import",
		Usage:     "Import a saved document into the store",
		ArgsUsage: "<file>",
	}
	exportCommand = cli.Command{
		Action:    exportDoc,
		Name:      "export",
		Usage:     "Export the stored document to a file",
		ArgsUsage: "<out>",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "syncdoc"
	app.Usage = "collaborative document tool"
	app.Flags = []cli.Flag{configFileFlag, dataDirFlag}
	app.Commands = []cli.Command{
		inspectCommand,
		mergeCommand,
		importCommand,
		exportCommand,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s", ctx.Command.ArgsUsage)
	}
	data, err := ioutil.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	doc, err := core.Load(data)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Hash", "Actor", "Seq", "Ops", "Time", "Message"})
	for _, c := range doc.GetChanges(nil) {
		table.Append([]string{
			c.Hash().TerminalString(),
			c.Actor().Hex(),
			fmt.Sprintf("%d", c.Seq),
			fmt.Sprintf("%d", len(c.Ops)),
			formatTime(c.Time),
			c.Message,
		})
	}
	table.Render()
	heads := doc.GetHeads()
	fmt.Printf("%d changes, %d heads\n", doc.NumChanges(), len(heads))
	return nil
}

func merge(ctx *cli.Context) error {
	if ctx.NArg() != 3 {
		return fmt.Errorf("usage: %s", ctx.Command.ArgsUsage)
	}
	a, err := loadFile(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	b, err := loadFile(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	if err := a.Merge(b); err != nil {
		return err
	}
	return ioutil.WriteFile(ctx.Args().Get(2), a.Save(), 0644)
}

func importDoc(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s", ctx.Command.ArgsUsage)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	doc, err := loadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	db, err := docdb.New(cfg.DataDir, cfg.Cache, cfg.Handles)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.WriteSnapshot(doc); err != nil {
		return err
	}
	for _, c := range doc.GetChanges(nil) {
		if err := db.WriteChange(c); err != nil {
			return err
		}
	}
	logrus.WithFields(logrus.Fields{
		"changes": doc.NumChanges(),
		"datadir": cfg.DataDir,
	}).Info("imported document")
	return nil
}

func exportDoc(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s", ctx.Command.ArgsUsage)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	db, err := docdb.New(cfg.DataDir, cfg.Cache, cfg.Handles)
	if err != nil {
		return err
	}
	defer db.Close()
	doc, err := db.ReadSnapshot()
	if err != nil {
		return err
	}
	return ioutil.WriteFile(ctx.Args().First(), doc.Save(), 0644)
}

func loadFile(path string) (*core.Document, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return core.Load(data)
}

func formatTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.Unix(ms/1000, 0).UTC().Format(time.RFC3339)
}
