// Package main provides the semdex binary entry point.
// Semdex indexes a vault of markdown documents into a triple store and
// answers SPARQL-like queries over it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/c360studio/semdex/config"
	"github.com/c360studio/semdex/document"
	"github.com/c360studio/semdex/export"
	"github.com/c360studio/semdex/index"
	"github.com/c360studio/semdex/indexer"
	"github.com/c360studio/semdex/query"
	"github.com/c360studio/semdex/triple"
	"github.com/c360studio/semdex/vocabulary/note"
	"github.com/c360studio/semdex/webimport"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semdex"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	app := &appEnv{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Vault query engine",
		Long: `Semdex indexes a vault of markdown documents into a triple store
and answers SPARQL-like queries over it.

Every document contributes triples from its frontmatter properties, its
body wiki-links, and intrinsic facts (name, path, hash, modified time).
Frontmatter ids feed a case-insensitive identifier index for quick
lookups and completion.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&app.vaultPath, "vault", "", "Vault directory (overrides config)")
	cmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		indexCmd(app),
		queryCmd(app),
		resolveCmd(app),
		identifiersCmd(app),
		statsCmd(app),
		exportCmd(app),
		serveCmd(app),
		snapshotCmd(app),
		importURLCmd(app),
		versionCmd(),
	)

	return cmd
}

// appEnv carries parsed global flags and, after setup, the resolved
// configuration and logger shared by all subcommands.
type appEnv struct {
	configPath string
	vaultPath  string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// setup resolves configuration and logging once flags are parsed. Commands
// call it at the top of their RunE so that version and help stay usable
// without a readable config.
func (a *appEnv) setup() error {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cfg *config.Config
	var err error
	if a.configPath != "" {
		cfg, err = config.LoadFromFile(a.configPath)
		if err == nil && cfg.Vault.Path == "" {
			// An explicit config file anchors the vault the same way a
			// discovered semdex.yaml would.
			cfg.Vault.Path = filepath.Dir(a.configPath)
		}
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.NewLoader(bootstrap).Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if a.vaultPath != "" {
		cfg.Vault.Path = a.vaultPath
	}
	if cfg.Vault.Path == "" {
		cfg.Vault.Path = "."
	}

	// Configure logging
	levelName := cfg.Log.Level
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// buildIndex creates a query service and fills it from the vault.
func (a *appEnv) buildIndex(ctx context.Context) (*query.Service, *indexer.RebuildResult, error) {
	svc := query.NewService(query.WithLogger(a.logger))
	ix := indexer.New(svc, a.cfg.Vault, a.logger)
	result, err := ix.Rebuild(ctx)
	if err != nil {
		return nil, nil, err
	}
	return svc, result, nil
}

func indexCmd(app *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the vault index and report what it found",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			_, result, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d documents: %d triples, %d identifiers (%s)\n",
				result.Documents, result.Triples, result.Identifiers,
				result.Duration.Round(time.Millisecond))
			if result.Failed > 0 {
				fmt.Printf("Skipped %d documents that failed to parse\n", result.Failed)
			}
			return nil
		},
	}
}

func queryCmd(app *appEnv) *cobra.Command {
	var (
		astFile   string
		subject   string
		predicate string
		object    string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query against the vault",
		Long: `Run a query against the vault.

With -f, the query is a parsed AST in JSON form ("-" reads stdin) and
results print as JSON bindings. Without it, -s/-p/-o give a single
triple pattern; empty slots match anything and matching triples print
one per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			svc, _, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}
			if astFile != "" {
				return runASTQuery(cmd.Context(), svc, astFile)
			}
			return runPatternQuery(svc, subject, predicate, object)
		},
	}

	cmd.Flags().StringVarP(&astFile, "file", "f", "", `Query AST JSON file ("-" for stdin)`)
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject pattern (vault path or IRI)")
	cmd.Flags().StringVarP(&predicate, "predicate", "p", "", "Predicate pattern")
	cmd.Flags().StringVarP(&object, "object", "o", "", "Object pattern")

	return cmd
}

func runASTQuery(ctx context.Context, svc *query.Service, astFile string) error {
	var data []byte
	var err error
	if astFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(astFile)
	}
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}

	ast, err := query.DecodeQuery(data)
	if err != nil {
		return err
	}
	result, err := svc.QueryAST(ctx, ast)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runPatternQuery(svc *query.Service, subject, predicate, object string) error {
	matches := svc.Match(subjectTerm(subject), predicateTerm(predicate), objectTerm(object))
	for _, m := range matches {
		fmt.Printf("%s %s %s\n", m.Subject.Key(), m.Predicate.Key(), m.Object.Key())
	}
	return nil
}

// subjectTerm maps the -s flag to a term. Empty is a wildcard, a value
// with a scheme passes through, anything else reads as a vault-relative
// path.
func subjectTerm(value string) triple.Term {
	if value == "" {
		return nil
	}
	if strings.Contains(value, "://") {
		return triple.NewIRI(value)
	}
	return triple.NewIRI(note.EntityIRI(value))
}

func predicateTerm(value string) triple.Term {
	if value == "" {
		return nil
	}
	return triple.NewIRI(value)
}

// objectTerm types the -o flag the way frontmatter detection would:
// numbers and booleans first, then references, IRIs, and dates, falling
// back to a plain string.
func objectTerm(value string) triple.Term {
	if value == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return triple.NewNumberLiteral(f)
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return triple.NewBoolLiteral(b)
	}
	pv := document.Detect(value)
	switch pv.Kind {
	case document.KindDate:
		return triple.NewDateLiteral(pv.Time)
	case document.KindIRI:
		return triple.NewIRI(pv.Str)
	case document.KindReference:
		return triple.NewIRI(note.EntityIRI(pv.Str))
	default:
		return triple.NewStringLiteral(value)
	}
}

func resolveCmd(app *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Look up the document registered under an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			svc, _, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}
			location, ok := svc.Resolve(args[0])
			if !ok {
				return fmt.Errorf("identifier not found: %s", args[0])
			}
			fmt.Println(location)
			return nil
		},
	}
}

func identifiersCmd(app *appEnv) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "identifiers",
		Short: "List documents whose identifier starts with a prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			svc, _, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}
			for _, location := range svc.ResolvePartial(prefix) {
				fmt.Println(location)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Identifier prefix (case-insensitive)")
	_ = cmd.MarkFlagRequired("prefix")

	return cmd
}

func statsCmd(app *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			svc, _, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Stats())
		},
	}
}

func exportCmd(app *appEnv) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serialize the indexed triples to an RDF format",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			svc, _, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}

			exporter := export.NewExporter()
			exporter.Add(svc.Match(nil, nil, nil)...)
			serialized, err := exporter.Export(f)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				fmt.Print(serialized)
				return nil
			}
			if err := os.WriteFile(output, []byte(serialized), 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "turtle", "Output format (turtle, ntriples, jsonld)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file (default stdout)`)

	return cmd
}

func snapshotCmd(app *appEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or inspect the identifier snapshot in JetStream",
	}
	cmd.AddCommand(snapshotSaveCmd(app), snapshotLoadCmd(app))
	return cmd
}

func snapshotSaveCmd(app *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Index the vault and persist the identifiers to JetStream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			svc, result, err := app.buildIndex(cmd.Context())
			if err != nil {
				return err
			}

			nc, js, err := connectJetStream(app.cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer nc.Close()

			bucket := app.cfg.NATS.SnapshotBucket
			if err := index.SaveSnapshot(cmd.Context(), js, bucket, svc.ExportIdentifiers()); err != nil {
				return err
			}
			fmt.Printf("Saved %d identifiers to bucket %s\n", result.Identifiers, bucket)
			return nil
		},
	}
}

func snapshotLoadCmd(app *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Print the identifiers persisted in JetStream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			nc, js, err := connectJetStream(app.cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer nc.Close()

			snapshot, err := index.LoadSnapshot(cmd.Context(), js, app.cfg.NATS.SnapshotBucket)
			if err != nil {
				return err
			}
			for _, entry := range snapshot.Entries {
				fmt.Printf("%s\t%s\n", entry.ID, entry.Location)
			}
			return nil
		},
	}
}

// connectJetStream dials NATS and hands back the JetStream context.
func connectJetStream(url string) (*nats.Conn, jetstream.JetStream, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("nats.url is not configured")
	}
	nc, err := nats.Connect(url, nats.Name(appName))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("get JetStream context: %w", err)
	}
	return nc, js, nil
}

func importURLCmd(app *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "import-url <url>",
		Short: "Fetch a web page into the vault as a markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			imp := webimport.NewImporter(app.cfg.Vault.Path, app.logger)
			result, err := imp.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %q to %s (%d bytes)\n", result.Title, result.Path, result.Size)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}
