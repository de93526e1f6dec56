package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/vivialtest"
)

// run executes the root command against s and returns stdout
func run(t *testing.T, s *vivialtest.Server, args ...string) (string, error) {
	t.Helper()

	t.Setenv("VIVIALCONNECT_ACCOUNT_ID", s.AccountID)
	t.Setenv("VIVIALCONNECT_ACCOUNT_API_KEY", s.APIKey)
	t.Setenv("VIVIALCONNECT_ACCOUNT_API_SECRET", s.APISecret)
	t.Setenv("VIVIALCONNECT_API_BASE_URL", s.BaseURL())
	t.Setenv("VIVIALCONNECT_LOGGING_LEVEL", "error")

	resetCommand(t.Context(), rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

// resetCommand restores flag defaults between runs of the shared command
// tree. cobra keeps the context a subcommand saw on its first run, so every
// command is handed ctx again.
func resetCommand(ctx context.Context, c *cobra.Command) {
	c.SetContext(ctx)
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommand(ctx, sub)
	}
}

func decodeList(t *testing.T, out string) []map[string]any {
	t.Helper()
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items), out)
	return items
}

func TestAccountsShowTable(t *testing.T) {
	s := vivialtest.New(t)

	out, err := run(t, s, "accounts", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Vivial Connect")
	assert.Contains(t, out, "10001")
}

func TestMessagesSendAndList(t *testing.T) {
	s := vivialtest.New(t)

	out, err := run(t, s, "messages", "send", "-o", "json",
		"--from", "+12025550100", "--to", "+12025550199", "--body", "hello")
	require.NoError(t, err)

	sent := decodeList(t, out)
	require.Len(t, sent, 1)
	assert.Equal(t, "+12025550199", sent[0]["to_number"])
	assert.Equal(t, "accepted", sent[0]["status"])

	s.Seed("messages", map[string]any{"to_number": "+12025550198", "body": "old", "status": "failed"})

	out, err = run(t, s, "messages", "list", "-o", "json", "--where", `status == "failed"`)
	require.NoError(t, err)

	failed := decodeList(t, out)
	require.Len(t, failed, 1)
	assert.Equal(t, "old", failed[0]["body"])
}

func TestMessagesSendRejectsInvalidNumber(t *testing.T) {
	s := vivialtest.New(t)

	_, err := run(t, s, "messages", "send", "--from", "+12025550100", "--to", "555-0199", "--body", "hi")
	require.Error(t, err)

	_, err = run(t, s, "messages", "bulk", "--from", "+12025550100", "--to", "555,+12025550199,abc", "--body", "hi")
	require.Error(t, err)
	assert.Empty(t, s.Requests())
}

func TestMessagesGetKeepsArgumentOrder(t *testing.T) {
	s := vivialtest.New(t)
	first := s.Seed("messages", map[string]any{"body": "first"})
	second := s.Seed("messages", map[string]any{"body": "second"})

	out, err := run(t, s, "messages", "get", "-o", "json", strconv.Itoa(second), strconv.Itoa(first))
	require.NoError(t, err)

	got := decodeList(t, out)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0]["body"])
	assert.Equal(t, "first", got[1]["body"])
}

func TestNumbersLookup(t *testing.T) {
	s := vivialtest.New(t)
	numbers := []string{"+12025550101", "+12025550102", "+12025550103"}

	out, err := run(t, s, append([]string{"numbers", "lookup", "-o", "json"}, numbers...)...)
	require.NoError(t, err)

	infos := decodeList(t, out)
	require.Len(t, infos, len(numbers))
	for i, info := range infos {
		assert.Equal(t, numbers[i], info["phone_number"])
	}
}

func TestNumbersTagged(t *testing.T) {
	s := vivialtest.New(t)
	s.Seed("phone_numbers", map[string]any{"phone_number": "+12025550111", "tags": map[string]any{"team": "red"}})
	s.Seed("phone_numbers", map[string]any{"phone_number": "+12025550112", "tags": map[string]any{"team": "blue"}})

	out, err := run(t, s, "numbers", "tagged", "-o", "json", "--contains", "team=red")
	require.NoError(t, err)

	numbers := decodeList(t, out)
	require.Len(t, numbers, 1)
	assert.Equal(t, "+12025550111", numbers[0]["phone_number"])

	_, err = run(t, s, "numbers", "tagged", "--contains", "team")
	assert.Error(t, err)
}

func TestNamedFilterFromConfig(t *testing.T) {
	s := vivialtest.New(t)
	s.Seed("messages", map[string]any{"body": "a", "status": "delivered"})
	s.Seed("messages", map[string]any{"body": "b", "status": "failed"})
	s.Seed("messages", map[string]any{"body": "c", "status": "failed"})

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filters:\n  failed: 'status == \"failed\"'\n"), 0o600))

	out, err := run(t, s, "--config", path, "messages", "list", "-o", "json", "-w", "failed")
	require.NoError(t, err)
	assert.Len(t, decodeList(t, out), 2)

	out, err = run(t, s, "--config", path, "filters", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"failed": "status == \"failed\""}`, out)

	out, err = run(t, s, "--config", path, "filters", "--count", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name": "failed", "expression": "status == \"failed\"", "matches": 2}]`, out)

	out, err = run(t, s, "--config", path, "filters", "failed", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")

	_, err = run(t, s, "--config", path, "filters", "missing")
	assert.Error(t, err)
}

func TestCommandRunsAgainAfterEarlierTest(t *testing.T) {
	s := vivialtest.New(t)

	// The first run leaves the subcommand holding a context that is
	// cancelled once this subtest ends.
	t.Run("first", func(t *testing.T) {
		_, err := run(t, s, "accounts", "show", "-o", "json")
		require.NoError(t, err)
	})

	out, err := run(t, s, "accounts", "show", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Vivial Connect")
}

func TestYAMLOutput(t *testing.T) {
	s := vivialtest.New(t)

	out, err := run(t, s, "accounts", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "company_name: Vivial Connect")
}

func TestServerErrorSurfaces(t *testing.T) {
	s := vivialtest.New(t)
	s.FailNext(500, `{"message": "boom"}`)

	_, err := run(t, s, "numbers", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, requestor.ErrServerError)
}

func TestVersionNeedsNoConfig(t *testing.T) {
	resetCommand(t.Context(), rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.ExecuteContext(t.Context()))
	assert.Contains(t, out.String(), "client library "+requestor.ClientVersion().String())
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"team=red", "env="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "red", "env": ""}, tags)

	_, err = parseTags([]string{"novalue"})
	assert.Error(t, err)

	assert.Equal(t, "env=prod,team=red", formatTags(map[string]string{"team": "red", "env": "prod"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 5))
	assert.Equal(t, "hel...", truncate("hello", 3))
	assert.Equal(t, "hé...", truncate("héllo", 2))
}
