package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/s0up4200/vivialconnect/resource"
	"github.com/s0up4200/vivialconnect/vivialconnect"
)

// configurationsCmd groups number configuration commands
var configurationsCmd = &cobra.Command{
	Use:     "configurations",
	Aliases: []string{"configs"},
	Short:   "Inspect number configurations",
}

var configurationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configurations",
	Args:  cobra.NoArgs,
	RunE:  runConfigurationsList,
}

// connectorsCmd groups connector commands
var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "Inspect connectors",
}

var connectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connectors",
	Args:  cobra.NoArgs,
	RunE:  runConnectorsList,
}

var connectorsShowCmd = &cobra.Command{
	Use:   "show <connector-id>",
	Short: "Show the numbers and callbacks of a connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorsShow,
}

func init() {
	rootCmd.AddCommand(configurationsCmd, connectorsCmd)
	configurationsCmd.AddCommand(configurationsListCmd)
	connectorsCmd.AddCommand(connectorsListCmd, connectorsShowCmd)
}

func runConfigurationsList(cmd *cobra.Command, args []string) error {
	configurations, err := client.Configurations.FindAll(cmd.Context(), nil)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(configurations), []column{
		idColumn,
		attrColumn("Name", "name"),
		attrColumn("Number", "phone_number"),
		attrColumn("SMS URL", "sms_url"),
		attrColumn("Status Callback", "message_status_callback"),
	})
}

func runConnectorsList(cmd *cobra.Command, args []string) error {
	connectors, err := client.Connectors.FindAll(cmd.Context(), nil)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(connectors), []column{
		idColumn,
		attrColumn("Name", "name"),
		attrColumn("Active", "active"),
		{header: "Numbers", value: func(r *resource.Resource) string {
			numbers, _ := (&vivialconnect.Connector{Resource: r}).PhoneNumbers()
			return fmt.Sprint(len(numbers))
		}},
		attrColumn("Created", "date_created"),
	})
}

// connectorDetail is the structured form of connectors show
type connectorDetail struct {
	ID           string                            `json:"id" yaml:"id"`
	Name         string                            `json:"name" yaml:"name"`
	MoreNumbers  bool                              `json:"more_numbers" yaml:"more_numbers"`
	PhoneNumbers []vivialconnect.ConnectorNumber   `json:"phone_numbers" yaml:"phone_numbers"`
	Callbacks    []vivialconnect.ConnectorCallback `json:"callbacks" yaml:"callbacks"`
}

func runConnectorsShow(cmd *cobra.Command, args []string) error {
	connector, err := client.Connectors.Find(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	numbers, err := connector.PhoneNumbers()
	if err != nil {
		return err
	}
	callbacks, err := connector.Callbacks()
	if err != nil {
		return err
	}

	detail := connectorDetail{
		ID:           connector.IDString(),
		Name:         connector.Name(),
		MoreNumbers:  connector.MoreNumbers(),
		PhoneNumbers: numbers,
		Callbacks:    callbacks,
	}

	return render(cmd, detail, func(t *tablewriter.Table) {
		t.SetHeader([]string{"Kind", "Identity", "Detail"})
		for _, n := range numbers {
			t.Append([]string{"number", n.Identity(), fmt.Sprint(n.PhoneNumberID)})
		}
		for _, c := range callbacks {
			t.Append([]string{"callback", c.Identity(), strings.TrimSpace(c.Method + " " + c.URL)})
		}
		if detail.MoreNumbers {
			t.SetFooter([]string{"", "more numbers not shown", ""})
		}
	})
}
