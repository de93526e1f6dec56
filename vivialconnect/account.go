package vivialconnect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/s0up4200/vivialconnect/resource"
)

// transactionTimeFormat is the format of the transaction search window.
const transactionTimeFormat = "2006-01-02T15:04:05Z"

var (
	// AccountKind is not nested under /accounts/{id}; its own paths are.
	AccountKind     = resource.NewKind("Account", resource.Unscoped())
	TransactionKind = resource.NewKind("Transaction")
)

// Account is a VivialConnect account
type Account struct {
	*resource.Resource
}

func wrapAccount(r *resource.Resource) *Account {
	return &Account{Resource: r}
}

// CompanyName returns the company the account belongs to
func (a *Account) CompanyName() string {
	return a.String("company_name")
}

// ParentAccountID returns the parent account id for subaccounts
func (a *Account) ParentAccountID() string {
	return a.String("account_id")
}

// AccountService reads and updates accounts. Accounts are created out of
// band, so there is no Create.
type AccountService struct {
	finder[*Account]
}

// Save updates the account
func (s *AccountService) Save(ctx context.Context, a *Account) error {
	return s.c.Save(ctx, a.Raw())
}

// Reload replaces the local attributes with the current remote state
func (s *AccountService) Reload(ctx context.Context, a *Account) error {
	return s.c.Reload(ctx, a.Raw())
}

// Current fetches the account the client is configured for
func (s *AccountService) Current(ctx context.Context) (*Account, error) {
	return s.Find(ctx, s.c.AccountID())
}

// BillingStatus returns the billing status of accountID, or of the
// configured account when accountID is empty.
func (s *AccountService) BillingStatus(ctx context.Context, accountID string) (map[string]any, error) {
	if accountID == "" {
		accountID = s.c.AccountID()
	}
	body, err := s.c.Do(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/status.json", accountID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get billing status: %w", err)
	}
	status, _ := body.(map[string]any)
	return status, nil
}

// Transaction is a billing record: number purchases, message charges and
// credits.
type Transaction struct {
	*resource.Resource
}

func wrapTransaction(r *resource.Resource) *Transaction {
	return &Transaction{Resource: r}
}

// TransactionType returns the transaction type, e.g. number_purchase
func (t *Transaction) TransactionType() string {
	return t.String("transaction_type")
}

// Amount returns the cash amount of the transaction
func (t *Transaction) Amount() float64 {
	return t.Float("cash_amount")
}

// TransactionQuery filters transactions. A zero window searches the last
// year.
type TransactionQuery struct {
	Types     []string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Page      int
}

// TransactionService reads account transactions
type TransactionService struct {
	finder[*Transaction]
	now func() time.Time
}

// Search lists transactions matching q
func (s *TransactionService) Search(ctx context.Context, q TransactionQuery) ([]*Transaction, error) {
	query := map[string]any{}
	if len(q.Types) > 0 {
		query["include_types"] = q.Types
	}

	start, end := q.StartTime, q.EndTime
	if start.IsZero() && end.IsZero() {
		end = s.now()
		start = end.AddDate(-1, 0, 0)
	}
	if !start.IsZero() {
		query["start_time"] = start.UTC().Format(transactionTimeFormat)
	}
	if !end.IsZero() {
		query["end_time"] = end.UTC().Format(transactionTimeFormat)
	}
	if q.Limit > 0 {
		query["limit"] = q.Limit
	}
	if q.Page > 0 {
		query["page"] = q.Page
	}

	return s.FindAll(ctx, query)
}
