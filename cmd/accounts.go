package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/vivialconnect/resource"
	"github.com/s0up4200/vivialconnect/vivialconnect"
)

var (
	transactionTypes []string
	transactionSince time.Duration
	transactionLimit int
	transactionPage  int
)

// accountsCmd groups account commands
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Show the account and its billing",
}

var accountsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured account",
	Args:  cobra.NoArgs,
	RunE:  runAccountsShow,
}

var accountsStatusCmd = &cobra.Command{
	Use:   "status [account-id]",
	Short: "Show the billing status of an account",
	Long:  `Show the billing status of an account. Defaults to the configured account.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccountsStatus,
}

var accountsTransactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List account transactions",
	Long:  `List account transactions. Without --since the last year is searched.`,
	Args:  cobra.NoArgs,
	RunE:  runAccountsTransactions,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsShowCmd, accountsStatusCmd, accountsTransactionsCmd)

	accountsTransactionsCmd.Flags().StringSliceVarP(&transactionTypes, "type", "t", nil, "only include these transaction types")
	accountsTransactionsCmd.Flags().DurationVar(&transactionSince, "since", 0, "only include transactions newer than this, e.g. 720h")
	accountsTransactionsCmd.Flags().IntVar(&transactionLimit, "limit", 0, "maximum number of transactions")
	accountsTransactionsCmd.Flags().IntVar(&transactionPage, "page", 0, "page number")
}

func runAccountsShow(cmd *cobra.Command, args []string) error {
	account, err := client.Accounts.Current(cmd.Context())
	if err != nil {
		return err
	}
	return renderResources(cmd, []*resource.Resource{account.Raw()}, []column{
		idColumn,
		attrColumn("Company", "company_name"),
		attrColumn("Parent", "account_id"),
		attrColumn("Created", "date_created"),
	})
}

func runAccountsStatus(cmd *cobra.Command, args []string) error {
	accountID := cfg.Account.ID
	if len(args) == 1 {
		accountID = args[0]
	}
	status, err := client.Accounts.BillingStatus(cmd.Context(), accountID)
	if err != nil {
		return err
	}
	return renderMap(cmd, status)
}

func runAccountsTransactions(cmd *cobra.Command, args []string) error {
	q := vivialconnect.TransactionQuery{
		Types: transactionTypes,
		Limit: transactionLimit,
		Page:  transactionPage,
	}
	if transactionSince > 0 {
		q.EndTime = time.Now().UTC()
		q.StartTime = q.EndTime.Add(-transactionSince)
	}

	transactions, err := client.Transactions.Search(cmd.Context(), q)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(transactions), []column{
		idColumn,
		attrColumn("Type", "transaction_type"),
		{header: "Amount", value: func(r *resource.Resource) string { return fmt.Sprintf("%.4f", r.Float("amount")) }},
		truncColumn("Description", "description", 40),
		attrColumn("Created", "date_created"),
	})
}
