package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/leadscan/internal/config"
	"github.com/hpungsan/leadscan/internal/db"
	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/logging"
	"github.com/hpungsan/leadscan/internal/mcp"
	"github.com/hpungsan/leadscan/internal/ops"
	"github.com/hpungsan/leadscan/internal/report"
	"github.com/hpungsan/leadscan/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := &cli.App{
		Name:    "leadscan",
		Usage:   "Find repeat and returning customers in lead CSV exports",
		Version: Version,
		Commands: []*cli.Command{
			analyzeCmd(cfg),
			chartCmd(cfg),
			serveCmd(cfg),
			mcpCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// analyzeResult is the --json output of analyze.
type analyzeResult struct {
	*ops.AnalyzeOutput
	Chart  *ops.ChartOutput  `json:"chart,omitempty"`
	Export *ops.ExportOutput `json:"export,omitempty"`
	Saved  []*ops.SaveOutput `json:"saved,omitempty"`
}

// analyzeCmd creates the analyze command.
func analyzeCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Count leads, multi-lead customers and returning customers in a CSV file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			titleFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
			&cli.BoolFlag{Name: "customers", Usage: "Include every customer with its submissions"},
			&cli.StringFlag{Name: "chart", Usage: "Also write the bar chart to this .png or .svg file"},
			&cli.StringFlag{Name: "export", Usage: "Also write customers to this .jsonl file"},
			&cli.StringFlag{Name: "sqlite", Usage: "Also save the run to this SQLite database"},
			&cli.StringFlag{Name: "postgres-url", Usage: "Also save the run to this Postgres database"},
			&cli.StringFlag{Name: "pg-schema", Value: cfg.PostgresSchema, Usage: "Postgres schema for saved runs"},
			&cli.StringFlag{Name: "tag", Usage: "Label stored with saved runs"},
			verboseFlag(),
		},
		Action: withLogging(cfg, func(c *cli.Context) error {
			path, err := requirePath(c)
			if err != nil {
				return outputError(err)
			}

			out, err := ops.Analyze(c.Context, ops.AnalyzeInput{
				Path:             path,
				Title:            ops.DefaultTitle(path, c.String("title"), cfg.DefaultTitle),
				IncludeCustomers: c.Bool("customers"),
			})
			if err != nil {
				return outputError(err)
			}

			result := analyzeResult{AnalyzeOutput: out}

			if chartPath := c.String("chart"); chartPath != "" {
				result.Chart, err = ops.Chart(c.Context, out, ops.ChartInput{
					Path:     chartPath,
					WidthCM:  cfg.ChartWidthCM,
					HeightCM: cfg.ChartHeightCM,
				})
				if err != nil {
					return outputError(err)
				}
			}

			if exportPath := c.String("export"); exportPath != "" {
				result.Export, err = ops.Export(c.Context, out, ops.ExportInput{Path: exportPath})
				if err != nil {
					return outputError(err)
				}
			}

			if sqlitePath := c.String("sqlite"); sqlitePath != "" {
				store, err := db.OpenSQLite(sqlitePath)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				saved, err := saveRun(c, cfg, store, out)
				if err != nil {
					return outputError(err)
				}
				result.Saved = append(result.Saved, saved)
			}

			if pgURL := c.String("postgres-url"); pgURL != "" {
				schema, err := db.SanitizeSchema(c.String("pg-schema"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				store, err := db.OpenPostgres(c.Context, pgURL, schema)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				saved, err := saveRun(c, cfg, store, out)
				if err != nil {
					return outputError(err)
				}
				result.Saved = append(result.Saved, saved)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, result)
			}

			var rows []report.Row
			if c.Bool("customers") {
				rows = ops.ReportRows(out.AllCustomers())
			}
			if err := report.WriteText(c.App.Writer, out.Summary(), rows); err != nil {
				return outputError(errors.NewInternal(err))
			}
			for _, line := range sinkLines(result) {
				fmt.Fprintln(c.App.Writer, line)
			}
			return nil
		}),
	}
}

// chartCmd creates the chart command.
func chartCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "chart",
		Usage:     "Render the lead summary bar chart of a CSV file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Chart file (default: <title>.<format> in the current directory)"},
			titleFlag(),
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Chart format: png|svg (default: from --out, else config)"},
			verboseFlag(),
		},
		Action: withLogging(cfg, func(c *cli.Context) error {
			path, err := requirePath(c)
			if err != nil {
				return outputError(err)
			}

			out, err := ops.Analyze(c.Context, ops.AnalyzeInput{
				Path:  path,
				Title: ops.DefaultTitle(path, c.String("title"), cfg.DefaultTitle),
			})
			if err != nil {
				return outputError(err)
			}

			outPath := c.String("out")
			format := c.String("format")
			if outPath == "" {
				if format == "" {
					format = cfg.ChartFormat
				}
				outPath = ops.SanitizeForFilename(out.Title) + "." + strings.ToLower(format)
			}

			result, err := ops.Chart(c.Context, out, ops.ChartInput{
				Path:     outPath,
				Format:   format,
				WidthCM:  cfg.ChartWidthCM,
				HeightCM: cfg.ChartHeightCM,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, result)
		}),
	}
}

// serveCmd creates the serve command.
func serveCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Analyze a CSV file and show the result in a local web page",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			titleFlag(),
			&cli.StringFlag{Name: "bind", Value: cfg.WebBind, Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: cfg.WebPort, Usage: "Port to listen on"},
			verboseFlag(),
		},
		Action: withLogging(cfg, func(c *cli.Context) error {
			path, err := requirePath(c)
			if err != nil {
				return outputError(err)
			}
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}

			out, err := ops.Analyze(c.Context, ops.AnalyzeInput{
				Path:  path,
				Title: ops.DefaultTitle(path, c.String("title"), cfg.DefaultTitle),
			})
			if err != nil {
				return outputError(err)
			}

			srv := web.NewServer(out, cfg, Version, c.String("bind"), port)
			fmt.Fprintf(c.App.ErrWriter, "Serving %s at http://%s\n", out.Title, srv.Addr)
			if err := web.Run(srv); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Flags: []cli.Flag{verboseFlag()},
		Action: withLogging(cfg, func(c *cli.Context) error {
			if err := mcp.Run(cfg, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// Helper functions

func titleFlag() cli.Flag {
	return &cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Chart title (default: config default_title, else the file name)"}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{Name: "verbose", Usage: "Log debug output to stderr"}
}

// withLogging installs the global zap logger for the duration of action.
func withLogging(cfg *config.Config, action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		restore, err := logging.Setup(cfg.Verbose || c.Bool("verbose"))
		if err != nil {
			return outputError(errors.NewInternal(err))
		}
		defer restore()
		return action(c)
	}
}

// requirePath returns the positional CSV path.
func requirePath(c *cli.Context) (string, error) {
	if c.NArg() < 1 || strings.TrimSpace(c.Args().First()) == "" {
		return "", errors.NewInvalidRequest("path argument is required")
	}
	if c.NArg() > 1 {
		return "", errors.NewInvalidRequest("expected exactly one path argument")
	}
	return c.Args().First(), nil
}

// saveRun configures the store's pool, saves the run and closes the store.
func saveRun(c *cli.Context, cfg *config.Config, store *db.Store, out *ops.AnalyzeOutput) (*ops.SaveOutput, error) {
	defer store.Close()
	db.ConfigurePool(store.DB, cfg)

	saved, err := ops.Save(c.Context, store, out, ops.SaveInput{Tag: c.String("tag")})
	if err != nil {
		return nil, err
	}
	if n, err := store.CountRuns(c.Context); err == nil {
		zap.L().Debug("runs in store", zap.String("dialect", saved.Dialect), zap.Int("runs", n))
	}
	return saved, nil
}

// sinkLines describes the files and stores written next to the text summary.
func sinkLines(r analyzeResult) []string {
	var lines []string
	if r.Chart != nil {
		lines = append(lines, fmt.Sprintf("Chart written: %s", r.Chart.Path))
	}
	if r.Export != nil {
		lines = append(lines, fmt.Sprintf("Exported %d customers: %s", r.Export.Count, r.Export.Path))
	}
	for _, s := range r.Saved {
		lines = append(lines, fmt.Sprintf("Saved run %s (%s)", s.RunID, s.Dialect))
	}
	if len(lines) > 0 {
		lines = append([]string{""}, lines...)
	}
	return lines
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.ScanError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
