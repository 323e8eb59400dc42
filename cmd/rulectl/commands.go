package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/decisiontable"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/expression"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/config"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/logger"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/pipeline"
)

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "compile an expression to JSONLogic",
		ArgsUsage: "EXPRESSION",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "reject tokens after a complete expression"},
		},
		Action: func(c *cli.Context) error {
			source := strings.Join(c.Args().Slice(), " ")
			parse := expression.ParseExpression
			if c.Bool("strict") {
				parse = expression.ParseStrict
			}

			logic, err := parse(source)
			if err != nil {
				var syntaxErr *expression.SyntaxError
				if errors.As(err, &syntaxErr) && syntaxErr.Pos >= 0 {
					return fmt.Errorf("%w\n  %s\n  %s^", err, source, strings.Repeat(" ", syntaxErr.Pos))
				}
				return err
			}

			for _, w := range ir.Lint(logic) {
				logger.Warn("logic warning", "problem", w)
			}
			return writeJSON(c.App.Writer, logic)
		},
	}
}

func decompileCommand() *cli.Command {
	return &cli.Command{
		Name:      "decompile",
		Usage:     "render JSONLogic as expression text",
		ArgsUsage: "[LOGIC_JSON]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read logic from `URL` or path"},
		},
		Action: func(c *cli.Context) error {
			var (
				logic ir.Node
				err   error
			)
			switch {
			case c.String("file") != "":
				logic, err = loader().LoadLogic(c.Context, c.String("file"))
			case c.NArg() > 0:
				logic, err = ir.Decode([]byte(c.Args().First()))
			default:
				return errors.New("logic JSON argument or --file is required")
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, expression.Decompile(logic))
			return nil
		},
	}
}

func tableCommand() *cli.Command {
	return &cli.Command{
		Name:  "table",
		Usage: "decision table tools",
		Subcommands: []*cli.Command{
			{
				Name:  "compile",
				Usage: "compile a decision table to JSONLogic",
				Flags: []cli.Flag{fileFlag()},
				Action: func(c *cli.Context) error {
					t, err := loader().LoadTable(c.Context, c.String("file"))
					if err != nil {
						return err
					}
					if err := reportProblems(c.App.Writer, decisiontable.Validate(t)); err != nil {
						return err
					}
					for _, p := range decisiontable.ValidateCells(t) {
						fmt.Fprintln(c.App.Writer, "warning:", p)
					}

					compiled := decisiontable.Compile(t)
					encoded, err := ir.Encode(compiled.Logic)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, metaTable(compiled.Meta, len(encoded)))
					return writeJSON(c.App.Writer, compiled.Logic)
				},
			},
			{
				Name:  "validate",
				Usage: "check a decision table definition and its cells",
				Flags: []cli.Flag{fileFlag()},
				Action: func(c *cli.Context) error {
					t, err := loader().LoadTable(c.Context, c.String("file"))
					if err != nil {
						return err
					}
					if err := reportProblems(c.App.Writer, tableProblems(t)); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "table %q is valid (%s rows)\n", t.ID, humanize.Comma(int64(len(t.Rows))))
					return nil
				},
			},
		},
	}
}

func pipelineCommand() *cli.Command {
	return &cli.Command{
		Name:  "pipeline",
		Usage: "pipeline tools",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "check step keys, references and dependency cycles",
				Flags: []cli.Flag{fileFlag()},
				Action: func(c *cli.Context) error {
					p, err := loader().LoadPipeline(c.Context, c.String("file"))
					if err != nil {
						return err
					}
					result := pipeline.Validate(p)
					for _, w := range result.Warnings {
						fmt.Fprintln(c.App.Writer, "warning:", w)
					}
					if err := reportProblems(c.App.Writer, result.Errors); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "pipeline %q is valid (%d steps)\n", p.ID, len(p.Steps))
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "execute a pipeline against a data document",
				Flags: []cli.Flag{
					fileFlag(),
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "input data `URL` or path"},
				},
				Action: runPipeline,
			},
		},
	}
}

func runPipeline(c *cli.Context) error {
	p, err := loader().LoadPipeline(c.Context, c.String("file"))
	if err != nil {
		return err
	}
	data := map[string]any{}
	if location := c.String("data"); location != "" {
		if data, err = loader().LoadData(c.Context, location); err != nil {
			return err
		}
	}

	validation := pipeline.Validate(p)
	if err := reportProblems(c.App.Writer, validation.Errors); err != nil {
		return err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	engine, err := cfg.NewEngine()
	if err != nil {
		return err
	}

	result := pipeline.NewExecutor(engine).Execute(p, data)
	fmt.Fprintln(c.App.Writer, stepTable(p, result))
	if !result.Success {
		return fmt.Errorf("step %q failed: %s", result.FailedStep, result.Error)
	}
	return writeJSON(c.App.Writer, result.Output)
}

func tableProblems(t *decisiontable.Table) []string {
	return append(decisiontable.Validate(t), decisiontable.ValidateCells(t)...)
}

func reportProblems(w io.Writer, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		fmt.Fprintln(w, "  -", p)
	}
	return fmt.Errorf("%d validation problem(s)", len(problems))
}

func metaTable(meta decisiontable.Meta, logicSize int) string {
	tw := table.NewWriter()
	tw.SetTitle("TABLE " + meta.TableID)
	tw.AppendRows([]table.Row{
		{"Hit policy", meta.HitPolicy},
		{"Rows", humanize.Comma(int64(meta.RowCount))},
		{"Wildcard rows", humanize.Comma(int64(meta.WildcardRows))},
		{"Inputs", strings.Join(meta.InputColumns, ", ")},
		{"Outputs", strings.Join(meta.OutputColumns, ", ")},
		{"Logic size", humanize.Bytes(uint64(logicSize))},
		{"Fingerprint", meta.Fingerprint},
	})
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

// stepTable lists every step with its status and output.
func stepTable(p *pipeline.Pipeline, result *pipeline.ExecutionResult) string {
	tw := table.NewWriter()
	tw.SetTitle("PIPELINE " + p.ID)
	tw.AppendHeader(table.Row{"Step", "Status", "Output"})

	for _, s := range p.Steps {
		status, output := "pending", ""
		switch {
		case !s.IsEnabled():
			status = "skipped"
		case s.Key == result.FailedStep:
			status, output = "FAIL", result.Error
		default:
			if v, ok := result.StepOutputs[s.Key]; ok {
				status, output = "ok", compact(v)
			}
		}
		tw.AppendRow(table.Row{s.Key, status, output})
	}

	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
