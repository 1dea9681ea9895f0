// Command textquery indexes a text file and evaluates boolean word queries
// against it, printing each result with its matching lines.
//
// Usage:
//
//	textquery --file doc.txt "a & ~b" "(a | c)"
//	textquery --file doc.txt.xz < queries.txt
//
// With no expressions on the command line, one expression is read per line
// of standard input.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/samber/lo"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/display"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/logger"
)

type CLI struct {
	File     string   `name:"file" short:"f" required:"" type:"existingfile" help:"Text document to index (.xz is decompressed)"`
	Config   string   `name:"config" short:"c" type:"path" help:"Config file for search limits"`
	LogLevel string   `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	Format   string   `name:"format" default:"text" enum:"text,json" help:"Output format (text, json)"`
	Exprs    []string `arg:"" optional:"" name:"expr" help:"Query expressions such as \"(a & ~b)\""`
}

type jsonResult struct {
	Query       string `json:"query"`
	Occurrences int    `json:"occurrences"`
	Lines       []int  `json:"lines"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("textquery"),
		kong.Description("Evaluate boolean word queries against a text document."),
		kong.UsageOnError(),
	)
	if err := cli.Run(context.Background(), os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "textquery: %v\n", err)
		os.Exit(1)
	}
}

// Run loads the document and evaluates every expression. Parse errors are
// reported on stderr and do not stop the remaining expressions; the
// returned error then says how many failed.
func (c *CLI) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger.Setup(c.LogLevel, "text", stderr)

	doc, err := indexer.Load(c.File)
	if err != nil {
		return err
	}

	exprs := c.Exprs
	if len(exprs) == 0 {
		exprs, err = readExprs(stdin)
		if err != nil {
			return err
		}
	}

	var (
		queries []query.Query
		failed  int
	)
	for _, text := range exprs {
		q, err := parser.Parse(text)
		if err != nil {
			fmt.Fprintf(stderr, "%q: %v\n", text, err)
			failed++
			continue
		}
		queries = append(queries, q)
	}

	exec := executor.New(doc, nil, cfg.Search)
	results, err := exec.ExecuteBatch(ctx, queries)
	if err != nil {
		return err
	}
	if err := c.write(stdout, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d %s could not be parsed",
			failed, len(exprs), display.Plural(len(exprs), "expression", "s"))
	}
	return nil
}

func (c *CLI) write(w io.Writer, results []*query.Result) error {
	if c.Format == "json" {
		out := lo.Map(results, func(r *query.Result, _ int) jsonResult {
			lines := lo.Map(r.LineNumbers(), func(i int, _ int) int { return i + 1 })
			return jsonResult{Query: r.Sought(), Occurrences: r.Len(), Lines: lines}
		})
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, r := range results {
		if err := display.Write(w, r); err != nil {
			return err
		}
	}
	return nil
}

// readExprs returns the non-blank lines of r.
func readExprs(r io.Reader) ([]string, error) {
	var exprs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			exprs = append(exprs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading expressions: %w", err)
	}
	return exprs, nil
}
