package vivialconnect

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/vivialtest"
)

func newTestClient(t *testing.T) (*Client, *vivialtest.Server) {
	t.Helper()
	s := vivialtest.New(t)
	c, err := New(s.Credentials(), zerolog.Nop(), requestor.WithBaseURL(s.BaseURL()))
	require.NoError(t, err)
	return c, s
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(requestor.Credentials{APISecret: "secret"}, zerolog.Nop())
	assert.ErrorIs(t, err, requestor.ErrRequestor)
}

func TestAccounts(t *testing.T) {
	c, s := newTestClient(t)
	ctx := t.Context()

	acct, err := c.Accounts.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Vivial Connect", acct.CompanyName())
	assert.Equal(t, vivialtest.DefaultAccountID, acct.IDString())
	assert.Empty(t, acct.ParentAccountID())

	acct.Set("company_name", "Acme Hardware")
	require.NoError(t, c.Accounts.Save(ctx, acct))

	stored, ok := s.Get("accounts", vivialtest.DefaultAccountID)
	require.True(t, ok)
	assert.Equal(t, "Acme Hardware", stored["company_name"])

	last, _ := s.LastRequest()
	assert.Equal(t, vivialtest.BasePath+"/accounts/"+vivialtest.DefaultAccountID+".json", last.Path)

	n, err := c.Accounts.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err := c.Accounts.BillingStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "active", status["status_code"])

	_, err = c.Accounts.BillingStatus(ctx, "999")
	assert.ErrorIs(t, err, requestor.ErrResourceNotFound)
}

func TestTransactionsSearch(t *testing.T) {
	c, s := newTestClient(t)
	s.Seed("transactions", map[string]any{"transaction_type": "number_purchase", "cash_amount": 1.5})
	s.Seed("transactions", map[string]any{"transaction_type": "message_sent", "cash_amount": 0.0075})

	c.Transactions.now = func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}

	all, err := c.Transactions.Search(t.Context(), TransactionQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	last, _ := s.LastRequest()
	assert.Contains(t, last.Query, "start_time=2024-06-01T00%3A00%3A00Z")
	assert.Contains(t, last.Query, "end_time=2025-06-01T00%3A00%3A00Z")

	purchases, err := c.Transactions.Search(t.Context(), TransactionQuery{Types: []string{"number"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "number_purchase", purchases[0].TransactionType())
	assert.InDelta(t, 1.5, purchases[0].Amount(), 0.0001)
}

func TestServerErrorsSurface(t *testing.T) {
	c, s := newTestClient(t)

	s.FailNext(500, `{"message":"boom"}`)
	_, err := c.Configurations.FindAll(t.Context(), nil)
	assert.ErrorIs(t, err, requestor.ErrServerError)
	assert.NotErrorIs(t, err, requestor.ErrResourceNotFound)

	s.FailNext(429, `{"message":"slow down"}`)
	_, err = c.Messages.Count(t.Context(), nil)
	assert.ErrorIs(t, err, requestor.ErrRateLimit)
}
