package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/asaidimu/go-maktaba/core/schema"
)

// NewQueryCommand creates the query command: mount, run one query, print
// the results, exit.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	spec := &querySpec{}

	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "Run one query against a configured collection",
		Long: `Run one query against a configured collection and print the matching
documents as indented JSON.

Filters take the form field=op:value with the standard comparison
operators (eq, neq, lt, lte, gt, gte, in, nin, contains, ncontains,
startswith, endswith, exists, nexists). Values are typed by shape:
true/false become booleans, numbers become numbers, everything else
stays a string.

Examples:
  maktaba query guides --where published=eq:true --sort date:desc --limit 5
  maktaba query guides --search "getting startd" --only slug,title
  maktaba query guides --surround installation --before 2 --after 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, spec, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&spec.wheres, "where", nil, "filter as field=op:value (repeatable)")
	flags.StringVar(&spec.search, "search", "", "full-text search across the collection's search fields")
	flags.StringVar(&spec.searchField, "search-field", "", "full-text search against one field, as field=text")
	flags.StringArrayVar(&spec.sorts, "sort", nil, "sort as field or field:desc (repeatable)")
	flags.StringSliceVar(&spec.only, "only", nil, "keep only these fields in the output")
	flags.StringVar(&spec.limit, "limit", "", "maximum number of documents")
	flags.StringVar(&spec.skip, "skip", "", "number of documents to skip")
	flags.StringVar(&spec.surround, "surround", "", "replace results with the neighbors of this slug")
	flags.IntVar(&spec.before, "before", 1, "neighbors before the surround target")
	flags.IntVar(&spec.after, "after", 1, "neighbors after the surround target")
	return cmd
}

func runQuery(cmd *cobra.Command, rootOpts *RootOptions, spec *querySpec, collection string) error {
	ctx := cmd.Context()
	st, cleanup, err := openStore(ctx, rootOpts, false)
	if err != nil {
		return err
	}
	defer cleanup()

	qb := st.Query(collection)
	if err := spec.apply(qb); err != nil {
		return err
	}
	docs, err := qb.Fetch(ctx)
	if err != nil {
		return err
	}
	return printDocuments(cmd.OutOrStdout(), docs)
}

// printDocuments renders fetched documents as indented JSON.
func printDocuments(w io.Writer, docs []schema.Document) error {
	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
