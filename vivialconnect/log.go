package vivialconnect

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/resource"
)

// logTimeFormat is the layout the logs endpoints accept for time bounds
const logTimeFormat = "20060102T150405Z"

// LogKind addresses /accounts/{id}/logs
var LogKind = resource.NewKind("Log")

// Aggregation granularities accepted by Aggregate
const (
	AggregateMinutes = "minutes"
	AggregateHours   = "hours"
	AggregateDays    = "days"
	AggregateMonths  = "months"
	AggregateYears   = "years"
)

// Log is one account activity record
type Log struct {
	*resource.Resource
}

func wrapLog(r *resource.Resource) *Log {
	return &Log{Resource: r}
}

// LogType returns the event category, e.g. message.sent
func (l *Log) LogType() string { return l.String("log_type") }

// Message returns the human readable description
func (l *Log) Message() string { return l.String("message") }

// OperatorID returns the id of the user or key that caused the event
func (l *Log) OperatorID() string {
	v, _ := l.Get("operator_id")
	return resource.FormatID(v)
}

// ItemID returns the id of the resource the event concerns
func (l *Log) ItemID() string {
	v, _ := l.Get("item_id")
	return resource.FormatID(v)
}

// Count returns log_count, set on aggregated items only
func (l *Log) Count() int64 { return l.Int("log_count") }

// LogQuery selects log items. StartTime and EndTime are required.
type LogQuery struct {
	StartTime  time.Time
	EndTime    time.Time
	LogType    string
	OperatorID string
	ItemID     string
	// StartKey continues a previous page, see LogPage.LastKey
	StartKey string
	Limit    int
	Extra    map[string]any
}

// Validate checks the required bounds
func (q LogQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.StartTime, validation.Required),
		validation.Field(&q.EndTime, validation.Required, validation.Min(q.StartTime).Error("must not be before start time")),
		validation.Field(&q.Limit, validation.Min(0)),
	)
}

func (q LogQuery) params() map[string]any {
	params := map[string]any{
		"start_time": q.StartTime.UTC().Format(logTimeFormat),
		"end_time":   q.EndTime.UTC().Format(logTimeFormat),
	}
	optional := map[string]string{
		"log_type":    q.LogType,
		"operator_id": q.OperatorID,
		"item_id":     q.ItemID,
		"start_key":   q.StartKey,
	}
	for k, v := range optional {
		if v != "" {
			params[k] = v
		}
	}
	if q.Limit > 0 {
		params["limit"] = q.Limit
	}
	for k, v := range q.Extra {
		params[k] = v
	}
	return params
}

// LogPage is one page of log items. LastKey is empty on the final page.
type LogPage struct {
	LastKey string
	Items   []*Log
}

// HasMore reports whether another page can be requested
func (p *LogPage) HasMore() bool {
	return p.LastKey != ""
}

// LogService reads the account activity log
type LogService struct {
	c *resource.Client
}

// Find returns one page of log items
func (s *LogService) Find(ctx context.Context, q LogQuery) (*LogPage, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid log query: %w", requestor.ErrResource, err)
	}
	body, err := s.c.Get(ctx, LogKind, nil, "", q.params())
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return buildLogPage(body)
}

// FindAll follows LastKey until every page matching q has been read
func (s *LogService) FindAll(ctx context.Context, q LogQuery) ([]*Log, error) {
	var all []*Log
	for {
		page, err := s.Find(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore() || page.LastKey == q.StartKey {
			return all, nil
		}
		q.StartKey = page.LastKey
	}
}

// Aggregate returns log counts per log type grouped by aggregator, one of
// the Aggregate constants. An empty aggregator means minutes.
func (s *LogService) Aggregate(ctx context.Context, start, end time.Time, aggregator string, extra map[string]any) (*LogPage, error) {
	if aggregator == "" {
		aggregator = AggregateMinutes
	}
	err := validation.Validate(aggregator,
		validation.In(AggregateMinutes, AggregateHours, AggregateDays, AggregateMonths, AggregateYears).
			Error("must be one of minutes, hours, days, months or years"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid aggregator_type: %w", requestor.ErrResource, err)
	}

	q := LogQuery{StartTime: start, EndTime: end, Extra: extra}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid log query: %w", requestor.ErrResource, err)
	}
	params := q.params()
	params["aggregator_type"] = aggregator

	body, err := s.c.Get(ctx, LogKind, nil, "/aggregate", params)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate logs: %w", err)
	}
	return buildLogPage(body)
}

func buildLogPage(body any) (*LogPage, error) {
	page := &LogPage{Items: []*Log{}}
	resp, ok := body.(map[string]any)
	if !ok {
		return page, nil
	}
	page.LastKey = resource.FormatID(resp["last_key"])

	items, _ := resp["log_items"].([]any)
	for _, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected log item %T", requestor.ErrResource, item)
		}
		page.Items = append(page.Items, wrapLog(resource.New(LogKind, attrs)))
	}
	return page, nil
}
