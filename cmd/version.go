package cmd

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/resource"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No config or credentials needed
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "vivialconnect %s (built %s)\n", version, buildTime)
		fmt.Fprintf(out, "client library %s\n", requestor.ClientVersion())
		fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

var filterCount bool

// filtersCmd lists the named filters usable with --where
var filtersCmd = &cobra.Command{
	Use:   "filters [name...]",
	Short: "List the filters defined in the config file",
	Long: `List the filters defined in the config file, or only the named ones.
With --count every filter is run over the account's messages and the number
of matches is shown next to it.`,
	RunE: runFilters,
}

// filterMatches is one row of filters --count
type filterMatches struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
	Matches    int    `json:"matches" yaml:"matches"`
}

func runFilters(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = filters.ListFilters()
	}
	for _, name := range names {
		if _, ok := filters.GetFilter(name); !ok {
			return fmt.Errorf("filter %q is not defined", name)
		}
	}

	if !filterCount {
		defined := make(map[string]any, len(names))
		for _, name := range names {
			defined[name] = cfg.Filters[name]
		}
		return renderMap(cmd, defined)
	}

	messages, err := client.Messages.FindAll(cmd.Context(), nil)
	if err != nil {
		return err
	}

	var matched map[string][]*resource.Resource
	if len(args) == 0 {
		matched, err = filters.EvaluateAll(cmd.Context(), raws(messages))
	} else {
		matched, err = filters.EvaluateSelected(cmd.Context(), names, raws(messages))
	}
	if err != nil {
		return fmt.Errorf("failed to evaluate filters: %w", err)
	}

	rows := make([]filterMatches, 0, len(names))
	for _, name := range slices.Sorted(slices.Values(names)) {
		rows = append(rows, filterMatches{
			Name:       name,
			Expression: cfg.Filters[name],
			Matches:    len(matched[name]),
		})
	}

	logger.Debug().Int("messages", len(messages)).Int("filters", len(rows)).Msg("Counted filter matches")

	return render(cmd, rows, func(t *tablewriter.Table) {
		t.SetHeader([]string{"Name", "Expression", "Matches"})
		for _, r := range rows {
			t.Append([]string{r.Name, r.Expression, strconv.Itoa(r.Matches)})
		}
		t.SetFooter([]string{"", "messages", strconv.Itoa(len(messages))})
	})
}

func init() {
	rootCmd.AddCommand(versionCmd, filtersCmd)
	filtersCmd.Flags().BoolVar(&filterCount, "count", false, "count the messages each filter matches")
}
