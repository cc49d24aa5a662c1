package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/asaidimu/go-maktaba/core/store"
)

const shellHelp = `Queries are pipelines: a collection name followed by stages.

  <collection>
      | where <field> <op> <value>     filter (eq, neq, lt, gt, in, ...)
      | search <text>                  fuzzy search over the search fields
      | search-field <field> <text>    fuzzy search over one field
      | sort <field> [desc]            order results
      | only <field>...                keep only these fields
      | surround <slug> [before after] neighbors of a document
      | limit <n> / skip <n>           pagination

  Example: guides | where published eq true | sort date desc | limit 5

Directives:
  :collections   list mounted collections
  :help          show this help
  :quit          leave the shell
`

var shellStages = []string{"where", "search", "search-field", "sort", "only", "surround", "limit", "skip"}

// NewShellCommand creates the shell command: an interactive prompt with
// history and completion running pipeline queries against the mounted
// collections. Collections configured with watch reload live while the
// shell is open.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "shell",
		Short:         "Query collections interactively",
		Long:          "Open an interactive prompt for pipeline queries.\n\n" + shellHelp,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, cleanup, err := openStore(ctx, rootOpts, true)
			if err != nil {
				return err
			}
			defer cleanup()
			return runShell(ctx, cmd.OutOrStdout(), st)
		},
	}
}

func runShell(ctx context.Context, out io.Writer, st *store.Store) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(shellCompleter(st))

	historyPath := shellHistoryPath()
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, "maktaba shell — :help for the query syntax, :quit to leave")
	for {
		input, err := line.Prompt("maktaba> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case ":quit", ":q", ":exit":
			return nil
		case ":help":
			fmt.Fprint(out, shellHelp)
			continue
		case ":collections":
			if err := printCollections(out, st); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			continue
		}

		if err := runShellQuery(ctx, out, st, input); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

// runShellQuery parses one pipeline line, fetches it, and prints the
// results.
func runShellQuery(ctx context.Context, out io.Writer, st *store.Store, input string) error {
	collection, spec, err := parsePipeline(input)
	if err != nil {
		return err
	}
	qb := st.Query(collection)
	if err := spec.apply(qb); err != nil {
		return err
	}
	docs, err := qb.Fetch(ctx)
	if err != nil {
		return err
	}
	return printDocuments(out, docs)
}

// shellCompleter completes collection names at the start of a line and
// stage keywords after a pipe.
func shellCompleter(st *store.Store) liner.Completer {
	return func(text string) []string {
		var out []string
		at := strings.LastIndex(text, "|")
		if at < 0 {
			prefix := strings.TrimSpace(text)
			for _, name := range st.Names() {
				if strings.HasPrefix(name, prefix) {
					out = append(out, name+" ")
				}
			}
			return out
		}
		head, tail := text[:at+1], strings.TrimSpace(text[at+1:])
		for _, stage := range shellStages {
			if strings.HasPrefix(stage, tail) {
				out = append(out, head+" "+stage+" ")
			}
		}
		return out
	}
}

func shellHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".maktaba_history")
	}
	return filepath.Join(home, ".maktaba_history")
}
