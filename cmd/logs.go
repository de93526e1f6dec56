package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/vivialconnect/vivialconnect"
)

var (
	logSince      time.Duration
	logType       string
	logOperatorID string
	logItemID     string
	logLimit      int
	logStartKey   string
	logAll        bool
	logAggregator string
)

// logsCmd groups log commands
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read account activity logs",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List log entries",
	Long: `List log entries newer than --since. A single page is shown unless --all
is given; the key printed at debug level continues with --start-key.`,
	Args: cobra.NoArgs,
	RunE: runLogsList,
}

var logsAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Count log entries per type",
	Args:  cobra.NoArgs,
	RunE:  runLogsAggregate,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsListCmd, logsAggregateCmd)

	for _, c := range []*cobra.Command{logsListCmd, logsAggregateCmd} {
		c.Flags().DurationVar(&logSince, "since", 24*time.Hour, "how far back to read")
		c.Flags().StringVar(&logType, "type", "", "only this log type")
		c.Flags().StringVar(&logOperatorID, "operator", "", "only entries by this operator id")
		c.Flags().StringVar(&logItemID, "item", "", "only entries about this item id")
	}

	logsListCmd.Flags().IntVar(&logLimit, "limit", 0, "entries per page")
	logsListCmd.Flags().StringVar(&logStartKey, "start-key", "", "continue from a previous page")
	logsListCmd.Flags().BoolVar(&logAll, "all", false, "follow every page")

	logsAggregateCmd.Flags().StringVar(&logAggregator, "by", vivialconnect.AggregateMinutes, "minutes, hours, days, months or years")
}

var logColumns = []column{
	attrColumn("Type", "log_type"),
	attrColumn("Operator", "operator_id"),
	attrColumn("Item", "item_id"),
	truncColumn("Message", "message", 50),
	attrColumn("Created", "date_created"),
}

func logQuery() vivialconnect.LogQuery {
	end := time.Now().UTC()
	return vivialconnect.LogQuery{
		StartTime:  end.Add(-logSince),
		EndTime:    end,
		LogType:    logType,
		OperatorID: logOperatorID,
		ItemID:     logItemID,
		StartKey:   logStartKey,
		Limit:      logLimit,
	}
}

func runLogsList(cmd *cobra.Command, args []string) error {
	q := logQuery()

	if logAll {
		logs, err := client.Logs.FindAll(cmd.Context(), q)
		if err != nil {
			return err
		}
		return renderResources(cmd, raws(logs), logColumns)
	}

	page, err := client.Logs.Find(cmd.Context(), q)
	if err != nil {
		return err
	}
	if page.HasMore() {
		logger.Debug().Str("last_key", page.LastKey).Msg("More log entries available")
	}
	return renderResources(cmd, raws(page.Items), logColumns)
}

func runLogsAggregate(cmd *cobra.Command, args []string) error {
	q := logQuery()

	extra := map[string]any{}
	for k, v := range map[string]string{"log_type": logType, "operator_id": logOperatorID, "item_id": logItemID} {
		if v != "" {
			extra[k] = v
		}
	}

	page, err := client.Logs.Aggregate(cmd.Context(), q.StartTime, q.EndTime, logAggregator, extra)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(page.Items), []column{
		attrColumn("Type", "log_type"),
		attrColumn("Count", "log_count"),
		attrColumn("Period", "date_created"),
	})
}
