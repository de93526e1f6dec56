package vivialconnect

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/resource"
)

// Client bundles the services for every resource type. It is safe for
// concurrent use.
type Client struct {
	Accounts       *AccountService
	Transactions   *TransactionService
	Messages       *MessageService
	Numbers        *NumberService
	Users          *UserService
	Logs           *LogService
	Configurations *ConfigurationService
	Connectors     *ConnectorService

	resources *resource.Client
}

// New creates a client that signs requests with creds
func New(creds requestor.Credentials, logger zerolog.Logger, opts ...requestor.Option) (*Client, error) {
	req, err := requestor.New(creds, logger, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithRequestor(req, logger), nil
}

// NewWithRequestor creates a client on top of an existing requestor
func NewWithRequestor(req resource.Requestor, logger zerolog.Logger) *Client {
	rc := resource.NewClient(req, logger)
	now := func() time.Time { return time.Now().UTC() }

	return &Client{
		Accounts:       &AccountService{finder: finder[*Account]{c: rc, kind: AccountKind, wrap: wrapAccount}},
		Transactions:   &TransactionService{finder: finder[*Transaction]{c: rc, kind: TransactionKind, wrap: wrapTransaction}, now: now},
		Messages:       &MessageService{crud: newCrud(rc, MessageKind, wrapMessage), logger: logger},
		Numbers:        &NumberService{crud: newCrud(rc, NumberKind, wrapNumber)},
		Users:          &UserService{crud: newCrud(rc, UserKind, wrapUser)},
		Logs:           &LogService{c: rc},
		Configurations: &ConfigurationService{crud: newCrud(rc, ConfigurationKind, wrapConfiguration)},
		Connectors:     &ConnectorService{crud: newCrud(rc, ConnectorKind, wrapConnector)},
		resources:      rc,
	}
}

// Resources exposes the generic resource client for endpoints without a
// dedicated service method.
func (c *Client) Resources() *resource.Client {
	return c.resources
}
