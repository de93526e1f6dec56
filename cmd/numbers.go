package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/vivialconnect/resource"
	"github.com/s0up4200/vivialconnect/vivialconnect"
)

var (
	availableQuery  vivialconnect.AvailableQuery
	buyName         string
	buyAreaCode     string
	tagContains     []string
	tagNotContains  []string
	numberListLimit int
)

var numberColumns = []column{
	idColumn,
	attrColumn("Number", "phone_number"),
	attrColumn("Type", "phone_number_type"),
	attrColumn("Name", "name"),
	{header: "Tags", value: func(r *resource.Resource) string {
		return formatTags((&vivialconnect.Number{Resource: r}).Tags())
	}},
}

// numbersCmd groups phone number commands
var numbersCmd = &cobra.Command{
	Use:     "numbers",
	Aliases: []string{"number"},
	Short:   "Search, buy and manage phone numbers",
}

var numbersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the numbers owned by the account",
	Args:  cobra.NoArgs,
	RunE:  runNumbersList,
}

var numbersAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "Search numbers that can be bought",
	Args:  cobra.NoArgs,
	RunE:  runNumbersAvailable,
}

var numbersBuyCmd = &cobra.Command{
	Use:   "buy [phone-number]",
	Short: "Buy a number, or any number in --area-code",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNumbersBuy,
}

var numbersLookupCmd = &cobra.Command{
	Use:   "lookup <phone-number>...",
	Short: "Look up carrier information for numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNumbersLookup,
}

var numbersTaggedCmd = &cobra.Command{
	Use:     "tagged",
	Short:   "List numbers by tag",
	Example: `  vivialconnect numbers tagged --contains team=red --not-contains env=test`,
	Args:    cobra.NoArgs,
	RunE:    runNumbersTagged,
}

var numbersUntagCmd = &cobra.Command{
	Use:   "untag <number-id> <key>",
	Short: "Remove a tag from a number",
	Args:  cobra.ExactArgs(2),
	RunE:  runNumbersUntag,
}

func init() {
	rootCmd.AddCommand(numbersCmd)
	numbersCmd.AddCommand(numbersListCmd, numbersAvailableCmd, numbersBuyCmd, numbersLookupCmd, numbersTaggedCmd, numbersUntagCmd)

	numbersListCmd.Flags().IntVar(&numberListLimit, "limit", 0, "maximum number of numbers")

	f := numbersAvailableCmd.Flags()
	f.StringVar(&availableQuery.CountryCode, "country", "US", "country code")
	f.StringVar(&availableQuery.NumberType, "type", "local", "number type, e.g. local or tollfree")
	f.StringVar(&availableQuery.AreaCode, "area-code", "", "area code")
	f.StringVar(&availableQuery.InRegion, "region", "", "two letter state or province")
	f.StringVar(&availableQuery.InPostalCode, "postal-code", "", "postal code")
	f.StringVar(&availableQuery.Contains, "contains", "", "digits or letters the number must contain")
	f.IntVar(&availableQuery.Limit, "limit", 0, "maximum number of results")

	numbersBuyCmd.Flags().StringVar(&buyName, "name", "", "display name for the number")
	numbersBuyCmd.Flags().StringVar(&buyAreaCode, "area-code", "", "buy any available number in this area code")

	numbersTaggedCmd.Flags().StringSliceVar(&tagContains, "contains", nil, "key=value tags the number must have")
	numbersTaggedCmd.Flags().StringSliceVar(&tagNotContains, "not-contains", nil, "key=value tags the number must not have")
}

func runNumbersList(cmd *cobra.Command, args []string) error {
	query := map[string]any{}
	if numberListLimit > 0 {
		query["limit"] = numberListLimit
	}
	numbers, err := client.Numbers.FindAll(cmd.Context(), query)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(numbers), numberColumns)
}

func runNumbersAvailable(cmd *cobra.Command, args []string) error {
	numbers, err := client.Numbers.Available(cmd.Context(), availableQuery)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(numbers), []column{
		attrColumn("Number", "phone_number"),
		attrColumn("Type", "phone_number_type"),
		attrColumn("City", "city"),
		attrColumn("Region", "region"),
		attrColumn("Area Code", "area_code"),
	})
}

func runNumbersBuy(cmd *cobra.Command, args []string) error {
	attrs := map[string]any{}
	if len(args) == 1 {
		attrs["phone_number"] = args[0]
	}
	if buyAreaCode != "" {
		attrs["area_code"] = buyAreaCode
	}
	if len(attrs) == 0 {
		return fmt.Errorf("give a phone number or --area-code")
	}
	if buyName != "" {
		attrs["name"] = buyName
	}

	n := client.Numbers.New(attrs)
	if err := client.Numbers.Buy(cmd.Context(), n); err != nil {
		return err
	}

	logger.Info().
		Str("id", n.IDString()).
		Str("number", n.PhoneNumber()).
		Msg("Number purchased")

	return renderResources(cmd, []*resource.Resource{n.Raw()}, numberColumns)
}

func runNumbersLookup(cmd *cobra.Command, args []string) error {
	infos := make([]*vivialconnect.NumberInfo, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency())

	for i, number := range args {
		g.Go(func() error {
			info, err := client.Numbers.Lookup(ctx, number)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return renderResources(cmd, raws(infos), []column{
		attrColumn("Number", "phone_number"),
		{header: "Carrier", value: nested("carrier", "name")},
		{header: "Line", value: nested("carrier", "type")},
		{header: "Device", value: nested("device", "model")},
	})
}

func runNumbersTagged(cmd *cobra.Command, args []string) error {
	query := map[string]any{}
	for key, pairs := range map[string][]string{"contains": tagContains, "notcontains": tagNotContains} {
		if len(pairs) == 0 {
			continue
		}
		tags, err := parseTags(pairs)
		if err != nil {
			return err
		}
		query[key] = tags
	}

	numbers, err := client.Numbers.TaggedNumbers(cmd.Context(), query)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(numbers), numberColumns)
}

func runNumbersUntag(cmd *cobra.Command, args []string) error {
	n, err := client.Numbers.Find(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	updated, err := client.Numbers.RemoveTag(cmd.Context(), n, args[1])
	if err != nil {
		return err
	}
	if !updated {
		logger.Warn().Str("id", args[0]).Msg("Service did not return the updated number")
	}

	return renderResources(cmd, []*resource.Resource{n.Raw()}, numberColumns)
}

// parseTags turns key=value pairs into a tag map
func parseTags(pairs []string) (map[string]string, error) {
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q, expected key=value", pair)
		}
		tags[key] = value
	}
	return tags, nil
}

func formatTags(tags map[string]string) string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, k+"="+v)
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ",")
}

// nested reads a string field from an object attribute
func nested(key, field string) func(r *resource.Resource) string {
	return func(r *resource.Resource) string {
		v, _ := r.Get(key)
		m, _ := v.(map[string]any)
		s, _ := m[field].(string)
		return s
	}
}
