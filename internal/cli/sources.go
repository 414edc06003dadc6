package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/search"
)

// NewSourcesCmd creates the sources command
func NewSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured package servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Listing sources never fetches anything
			agg := search.New(cfg, nil, search.FromConfig(cfg)...)
			return printSources(cmd.OutOrStdout(), agg.Sources(), agg.UnsupportedSources())
		},
	}
}

func printSources(w io.Writer, supported, unsupported []models.Source) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tURL\tBETA\tSTATUS")
	for _, s := range supported {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\tsupported\n", s.ID, s.Name, s.URL, s.SupportsBeta)
	}
	for _, s := range unsupported {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\tunsupported\n", s.ID, s.Name, s.URL, s.SupportsBeta)
	}
	return tw.Flush()
}
