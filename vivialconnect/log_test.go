package vivialconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/vivialtest"
)

func seedLogs(s *vivialtest.Server) {
	s.AddLog(map[string]any{"log_type": "message.sent", "message": "sent to +16125551213", "item_id": 1001, "operator_id": 7})
	s.AddLog(map[string]any{"log_type": "number.purchased", "message": "bought +16125551212", "item_id": 1002})
	s.AddLog(map[string]any{"log_type": "message.sent", "message": "sent to +16125551214", "item_id": 1003})
}

func logWindow() (time.Time, time.Time) {
	end := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	return end.Add(-24 * time.Hour), end
}

func TestLogsFind(t *testing.T) {
	c, s := newTestClient(t)
	seedLogs(s)
	start, end := logWindow()

	page, err := c.Logs.Find(t.Context(), LogQuery{StartTime: start, EndTime: end, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore())
	assert.Equal(t, "message.sent", page.Items[0].LogType())
	assert.Equal(t, "1001", page.Items[0].ItemID())
	assert.Equal(t, "7", page.Items[0].OperatorID())

	last, _ := s.LastRequest()
	assert.Contains(t, last.Query, "start_time=20250301T120000Z")
	assert.Contains(t, last.Query, "end_time=20250302T120000Z")

	next, err := c.Logs.Find(t.Context(), LogQuery{StartTime: start, EndTime: end, StartKey: page.LastKey, Limit: 2})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.False(t, next.HasMore())

	sent, err := c.Logs.Find(t.Context(), LogQuery{StartTime: start, EndTime: end, LogType: "message.sent"})
	require.NoError(t, err)
	assert.Len(t, sent.Items, 2)
}

func TestLogsFindAllFollowsPages(t *testing.T) {
	c, s := newTestClient(t)
	seedLogs(s)
	start, end := logWindow()

	all, err := c.Logs.FindAll(t.Context(), LogQuery{StartTime: start, EndTime: end, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Len(t, s.Requests(), 3)
}

func TestLogsQueryValidation(t *testing.T) {
	c, s := newTestClient(t)
	start, end := logWindow()

	tests := []struct {
		name string
		q    LogQuery
	}{
		{name: "missing start", q: LogQuery{EndTime: end}},
		{name: "missing end", q: LogQuery{StartTime: start}},
		{name: "end before start", q: LogQuery{StartTime: end, EndTime: start}},
		{name: "negative limit", q: LogQuery{StartTime: start, EndTime: end, Limit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Logs.Find(t.Context(), tt.q)
			assert.ErrorIs(t, err, requestor.ErrResource)
		})
	}
	assert.Empty(t, s.Requests())
}

func TestLogsAggregate(t *testing.T) {
	c, s := newTestClient(t)
	seedLogs(s)
	start, end := logWindow()

	page, err := c.Logs.Aggregate(t.Context(), start, end, "", nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "message.sent", page.Items[0].LogType())
	assert.Equal(t, int64(2), page.Items[0].Count())
	assert.Equal(t, int64(1), page.Items[1].Count())

	last, _ := s.LastRequest()
	assert.Contains(t, last.Query, "aggregator_type=minutes")

	_, err = c.Logs.Aggregate(t.Context(), start, end, AggregateDays, map[string]any{"log_type": "number.purchased"})
	require.NoError(t, err)

	_, err = c.Logs.Aggregate(t.Context(), start, end, "weeks", nil)
	assert.ErrorIs(t, err, requestor.ErrResource)
}
