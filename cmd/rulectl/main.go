// Command rulectl parses, decompiles and validates rule definitions, and runs
// pipelines against local data files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/definition"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/logger"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "rulectl",
		Usage:     "work with expressions, decision tables and pipelines",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			logger.SetOutput(os.Stderr)
			if c.Bool("verbose") {
				logger.SetLevel(logger.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			parseCommand(),
			decompileCommand(),
			tableCommand(),
			pipelineCommand(),
		},
	}
}

func fileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "definition `URL` or path (YAML or JSON)",
		Required: true,
	}
}

func loader() *definition.Loader {
	return definition.NewLoader()
}
