package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/vivialconnect/resource"
	"github.com/s0up4200/vivialconnect/vivialconnect"
)

var (
	messageLimit     int
	messagePage      int
	messageFrom      string
	messageTo        []string
	messageBody      string
	messageMediaURLs []string
	messageConnector string
)

var messageColumns = []column{
	idColumn,
	attrColumn("From", "from_number"),
	attrColumn("To", "to_number"),
	attrColumn("Status", "status"),
	attrColumn("Type", "message_type"),
	truncColumn("Body", "body", 40),
	attrColumn("Created", "date_created"),
}

// messagesCmd groups message commands
var messagesCmd = &cobra.Command{
	Use:     "messages",
	Aliases: []string{"message", "msg"},
	Short:   "Send and inspect messages",
}

var messagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List messages",
	Args:  cobra.NoArgs,
	RunE:  runMessagesList,
}

var messagesGetCmd = &cobra.Command{
	Use:   "get <id>...",
	Short: "Fetch one or more messages by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMessagesGet,
}

var messagesSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an SMS, or an MMS when media URLs are given",
	Example: `  vivialconnect messages send --from +12025550100 --to +12025550199 --body "hello"
  vivialconnect messages send --from +12025550100 --to +12025550199 --media-url https://example.com/cat.png`,
	Args: cobra.NoArgs,
	RunE: runMessagesSend,
}

var messagesBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Send the same message to many recipients",
	Long: `Send the same message to many recipients. Every recipient is checked
before anything is sent and all invalid numbers are reported together.`,
	Example: `  vivialconnect messages bulk --from +12025550100 --to +12025550199,+12025550198 --body "hello all"`,
	Args:    cobra.NoArgs,
	RunE:    runMessagesBulk,
}

var messagesBulksCmd = &cobra.Command{
	Use:   "bulks [bulk-id]",
	Short: "List bulk sends, or the messages of one bulk send",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMessagesBulks,
}

var messagesAttachmentsCmd = &cobra.Command{
	Use:   "attachments <message-id>",
	Short: "List the attachments of a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessagesAttachments,
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.AddCommand(messagesListCmd, messagesGetCmd, messagesSendCmd, messagesBulkCmd, messagesBulksCmd, messagesAttachmentsCmd)

	messagesListCmd.Flags().IntVar(&messageLimit, "limit", 0, "maximum number of messages")
	messagesListCmd.Flags().IntVar(&messagePage, "page", 0, "page number")

	for _, c := range []*cobra.Command{messagesSendCmd, messagesBulkCmd} {
		c.Flags().StringVarP(&messageFrom, "from", "f", "", "sender number or short code")
		c.Flags().StringSliceVarP(&messageTo, "to", "t", nil, "recipient number, e.g. +12025550199")
		c.Flags().StringVarP(&messageBody, "body", "b", "", "message text")
		c.Flags().StringSliceVar(&messageMediaURLs, "media-url", nil, "media URL to attach")
		c.Flags().StringVar(&messageConnector, "connector", "", "send through this connector id")
	}
}

func runMessagesList(cmd *cobra.Command, args []string) error {
	query := map[string]any{}
	if messageLimit > 0 {
		query["limit"] = messageLimit
	}
	if messagePage > 0 {
		query["page"] = messagePage
	}

	messages, err := client.Messages.FindAll(cmd.Context(), query)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(messages), messageColumns)
}

func runMessagesGet(cmd *cobra.Command, args []string) error {
	messages := make([]*vivialconnect.Message, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency())

	for i, id := range args {
		g.Go(func() error {
			m, err := client.Messages.Find(ctx, id)
			if err != nil {
				return fmt.Errorf("message %s: %w", id, err)
			}
			messages[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return renderResources(cmd, raws(messages), messageColumns)
}

// outgoing builds the message attributes shared by send and bulk
func outgoing() map[string]any {
	attrs := map[string]any{
		"from_number": messageFrom,
		"body":        messageBody,
	}
	if len(messageMediaURLs) > 0 {
		attrs["media_urls"] = messageMediaURLs
	}
	if messageConnector != "" {
		attrs["connector_id"] = messageConnector
	}
	return attrs
}

func runMessagesSend(cmd *cobra.Command, args []string) error {
	if len(messageTo) != 1 {
		return fmt.Errorf("send takes exactly one --to number, use bulk for more")
	}

	attrs := outgoing()
	attrs["to_number"] = messageTo[0]
	m := client.Messages.New(attrs)

	if err := client.Messages.Send(cmd.Context(), m); err != nil {
		return err
	}

	logger.Info().
		Str("id", m.IDString()).
		Str("to", m.ToNumber()).
		Str("status", m.Status()).
		Msg("Message sent")

	return renderResources(cmd, []*resource.Resource{m.Raw()}, messageColumns)
}

func runMessagesBulk(cmd *cobra.Command, args []string) error {
	attrs := outgoing()
	attrs["to_numbers"] = messageTo
	m := client.Messages.New(attrs)

	bulkID, err := client.Messages.SendBulk(cmd.Context(), m)
	if err != nil {
		return err
	}

	logger.Info().
		Str("bulk_id", bulkID).
		Int("recipients", len(messageTo)).
		Msg("Bulk message accepted")

	return renderMap(cmd, map[string]any{"bulk_id": bulkID, "recipients": len(messageTo)})
}

func runMessagesBulks(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		messages, err := client.Messages.BulkMessages(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return renderResources(cmd, raws(messages), messageColumns)
	}

	bulks, err := client.Messages.Bulks(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, bulks, func(t *tablewriter.Table) {
		t.SetHeader([]string{"Bulk ID", "Total", "Processed", "Errors", "Created"})
		for _, b := range bulks {
			created := ""
			if !b.DateCreated.IsZero() {
				created = b.DateCreated.Format("2006-01-02 15:04")
			}
			t.Append([]string{
				b.BulkID,
				fmt.Sprint(b.TotalMessages),
				fmt.Sprint(b.Processed),
				fmt.Sprint(b.Errors),
				created,
			})
		}
	})
}

func runMessagesAttachments(cmd *cobra.Command, args []string) error {
	m := client.Messages.New(map[string]any{"id": args[0]})

	attachments, err := client.Messages.Attachments(cmd.Context(), m, nil)
	if err != nil {
		return err
	}
	return renderResources(cmd, raws(attachments), []column{
		idColumn,
		attrColumn("File", "file_name"),
		attrColumn("Content Type", "content_type"),
		attrColumn("Size", "size"),
		attrColumn("Created", "date_created"),
	})
}
