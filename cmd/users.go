package cmd

import (
	"github.com/spf13/cobra"

	"github.com/s0up4200/vivialconnect/resource"
)

// usersCmd groups user commands
var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "List users and their API credentials",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the users of the account",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersCredentialsCmd = &cobra.Command{
	Use:   "credentials <user-id>",
	Short: "List the API credentials of a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersCredentials,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersCredentialsCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	users, err := client.Users.FindAll(cmd.Context(), nil)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(users), []column{
		idColumn,
		attrColumn("Username", "username"),
		attrColumn("First Name", "first_name"),
		attrColumn("Last Name", "last_name"),
		attrColumn("Email", "email"),
		attrColumn("Active", "active"),
	})
}

func runUsersCredentials(cmd *cobra.Command, args []string) error {
	user, err := client.Users.Find(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	creds, err := client.Users.Credentials(cmd.Context(), user)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(creds), []column{
		idColumn,
		attrColumn("Name", "name"),
		attrColumn("API Key", "api_key"),
		{header: "User", value: func(*resource.Resource) string { return user.Username() }},
		attrColumn("Created", "date_created"),
	})
}
