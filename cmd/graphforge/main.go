// Package main provides the GraphForge CLI entry point.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/graphforge/pkg/config"
	"github.com/orneryd/graphforge/pkg/executor"
	"github.com/orneryd/graphforge/pkg/glog"
	"github.com/orneryd/graphforge/pkg/graphforge"
	"github.com/orneryd/graphforge/pkg/value"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphforge",
		Short: "GraphForge - an embedded openCypher graph database",
		Long: `GraphForge is an embeddable property-graph database written in Go,
executing a substantial subset of openCypher over an in-memory or
Badger-backed store.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("GraphForge v%s\n", version)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new GraphForge database directory",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(initCmd)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run a single Cypher statement and print its result",
		RunE:  runQuery,
	}
	queryCmd.Flags().String("data-dir", "./data", "Data directory")
	queryCmd.Flags().String("backend", "memory", "Storage backend: memory or badger")
	queryCmd.Flags().StringP("command", "c", "", "Cypher statement to run")
	queryCmd.MarkFlagRequired("command")
	rootCmd.AddCommand(queryCmd)

	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the logical plan for a Cypher statement without running it",
		RunE:  runExplain,
	}
	explainCmd.Flags().String("data-dir", "./data", "Data directory")
	explainCmd.Flags().String("backend", "memory", "Storage backend: memory or badger")
	explainCmd.Flags().StringP("command", "c", "", "Cypher statement to explain")
	explainCmd.MarkFlagRequired("command")
	rootCmd.AddCommand(explainCmd)

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive Cypher shell",
		RunE:  runShell,
	}
	shellCmd.Flags().String("data-dir", "./data", "Data directory")
	shellCmd.Flags().String("backend", "memory", "Storage backend: memory or badger")
	rootCmd.AddCommand(shellCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) *config.Config {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	backend, _ := cmd.Flags().GetString("backend")
	cfg := config.LoadFromEnv()
	if dataDir != "" {
		cfg.Database.DataDir = dataDir
	}
	if backend != "" {
		cfg.Database.Backend = backend
	}
	return cfg
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	fmt.Printf("Initializing GraphForge database in %s\n", dataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dataDir, err)
	}

	configPath := filepath.Join(dataDir, "graphforge.yaml")
	configContent := `# GraphForge configuration
database:
  data_dir: ./data
  backend: badger
server:
  bolt_enabled: false
logging:
  level: info
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Println("Database initialized.")
	fmt.Printf("  Config: %s\n", configPath)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	stmt, _ := cmd.Flags().GetString("command")
	cfg := loadConfig(cmd)

	db, err := graphforge.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	result, err := db.Execute(stmt, nil)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	stmt, _ := cmd.Flags().GetString("command")
	cfg := loadConfig(cmd)

	db, err := graphforge.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	out, err := db.Explain(stmt)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	db, err := graphforge.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fmt.Println("GraphForge interactive shell. Enter a Cypher statement, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("graphforge> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if strings.HasPrefix(line, "EXPLAIN ") || strings.HasPrefix(line, "explain ") {
			out, err := db.Explain(strings.TrimSpace(line[len("EXPLAIN "):]))
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Print(out)
			continue
		}
		result, err := db.Execute(line, executor.Params{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printResult(result)
	}
	return nil
}

func printResult(result *graphforge.Result) {
	if len(result.Columns) == 0 {
		fmt.Printf("(%d rows)\n", len(result.Rows))
		printStats(result.Stats)
		return
	}
	fmt.Println(strings.Join(result.Columns, " | "))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = formatValue(row[col])
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	fmt.Printf("(%d rows)\n", len(result.Rows))
	printStats(result.Stats)
}

func printStats(stats executor.Stats) {
	if stats == (executor.Stats{}) {
		return
	}
	glog.Infof("nodes created=%d deleted=%d, rels created=%d deleted=%d, properties set=%d, labels added=%d removed=%d",
		stats.NodesCreated, stats.NodesDeleted, stats.RelsCreated, stats.RelsDeleted,
		stats.PropertiesSet, stats.LabelsAdded, stats.LabelsRemoved)
}

func formatValue(v value.Value) string {
	switch n := v.(type) {
	case nil, value.Null:
		return "null"
	case value.Bool:
		return fmt.Sprintf("%v", bool(n))
	case value.Int:
		return fmt.Sprintf("%d", int64(n))
	case value.Float:
		return fmt.Sprintf("%g", float64(n))
	case value.Str:
		return string(n)
	case value.Node:
		return fmt.Sprintf("(:%s %s)", strings.Join(n.Labels, ":"), formatMap(n.Properties))
	case value.Rel:
		return fmt.Sprintf("[:%s %s]", n.Type, formatMap(n.Properties))
	case value.List:
		items := make([]string, len(n))
		for i, e := range n {
			items[i] = formatValue(e)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case value.Map:
		return formatMap(n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatMap(m value.Map) string {
	keys := m.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := m.Get(k)
		parts[i] = fmt.Sprintf("%s: %s", k, formatValue(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
