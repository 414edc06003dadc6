package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/version"
)

type searchOptions struct {
	arch      string
	model     string
	version   string
	source    string
	keyword   string
	limit     int
	beta      bool
	userAgent string
	json      bool
	refresh   bool
}

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search packages for a device",
		Long: `Queries the configured package servers for the packages available to
the given device and prints the merged list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.keyword = args[0]
			}
			return runSearch(cmd, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.arch, "arch", "a", "", "Device architecture (e.g. armada375)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Device model (e.g. DS215j)")
	cmd.Flags().StringVar(&opts.version, "version", "", "Firmware version as major.minor-build (e.g. 6.1-15152)")
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Only query this source (id, name or URL)")
	cmd.Flags().StringVarP(&opts.keyword, "keyword", "k", "", "Only keep packages whose name or description contains this")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of packages (0 for no limit)")
	cmd.Flags().BoolVar(&opts.beta, "beta", false, "Query the beta channel where available")
	cmd.Flags().StringVar(&opts.userAgent, "user-agent", "", "User-Agent sent to package servers")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the full response as JSON")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Drop cached responses before searching")

	cmd.MarkFlagRequired("arch")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("version")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	v, err := version.Parse(opts.version)
	if err != nil {
		return models.NewSearchError(models.ErrVersionParse, "", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f, err := newFetcher(cfg, opts.refresh)
	if err != nil {
		return err
	}
	agg := newAggregator(cfg, f)

	resp := agg.GetPackages(cmd.Context(), models.Query{
		Source:    opts.source,
		Arch:      opts.arch,
		Model:     opts.model,
		Version:   *v,
		Beta:      opts.beta,
		Limit:     opts.limit,
		Keyword:   opts.keyword,
		UserAgent: opts.userAgent,
	})

	if resp.Err != nil {
		return resp.Err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for _, r := range resp.Results {
		if r.Failed() {
			logrus.Warn(r.ErrorMessage)
		} else if r.BetaDegraded {
			logrus.Infof("Source %s has no beta channel, stable packages shown", r.SourceID)
		}
	}
	if resp.ErrorMessage != "" {
		return fmt.Errorf("%s", resp.ErrorMessage)
	}

	return printPackages(out, resp.Packages)
}

func printPackages(w io.Writer, pkgs []models.Package) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSOURCE")
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Version, p.SourceURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	logrus.Infof("Found %d packages", len(pkgs))
	return nil
}
