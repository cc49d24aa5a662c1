package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/asaidimu/go-maktaba/core/store"
)

// NewCollectionsCommand creates the collections command, which lists the
// mounted collections with their document counts.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "collections",
		Short:         "List mounted collections",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer cleanup()
			return printCollections(cmd.OutOrStdout(), st)
		},
	}
}

func printCollections(w io.Writer, st *store.Store) error {
	names := st.Names()
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, "no collections mounted")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		coll, ok := st.Collection(name)
		if !ok {
			continue
		}
		description := ""
		if d := coll.Definition().Description; d != nil {
			description = *d
		}
		fmt.Fprintf(tw, "%s\t%d documents\t%s\n", name, coll.Len(), description)
	}
	return tw.Flush()
}
