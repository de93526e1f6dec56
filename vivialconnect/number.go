package vivialconnect

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/s0up4200/vivialconnect/inflect"
	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/resource"
)

var (
	NumberKind     = resource.NewKind("Number", resource.WithSingular("phone_number"))
	NumberInfoKind = resource.NewKind("NumberInfo")
)

// Number is a phone number owned by the account, or one offered for
// purchase.
type Number struct {
	*resource.Resource
}

func wrapNumber(r *resource.Resource) *Number {
	return &Number{Resource: r}
}

// PhoneNumber returns the number in E.164 form
func (n *Number) PhoneNumber() string { return n.String("phone_number") }

// PhoneNumberType returns local, tollfree and so on
func (n *Number) PhoneNumberType() string { return n.String("phone_number_type") }

// Name returns the display name of the number
func (n *Number) Name() string { return n.String("name") }

// AreaCode returns the area code
func (n *Number) AreaCode() string { return n.String("area_code") }

// Tags returns the key/value tags set on the number
func (n *Number) Tags() map[string]string {
	raw, _ := n.Get("tags")
	m, _ := raw.(map[string]any)
	tags := make(map[string]string, len(m))
	for k, v := range m {
		tags[k] = fmt.Sprint(v)
	}
	return tags
}

// NumberInfo is carrier and device information for a looked up number
type NumberInfo struct {
	*resource.Resource
}

// PhoneNumber returns the looked up number
func (i *NumberInfo) PhoneNumber() string { return i.String("phone_number") }

// AvailableQuery searches the numbers offered for purchase. CountryCode
// defaults to US and NumberType to local.
type AvailableQuery struct {
	CountryCode  string
	NumberType   string
	AreaCode     string
	InRegion     string
	InPostalCode string
	Contains     string
	Limit        int

	// Extra carries any other search parameter.
	Extra map[string]any
}

func (q AvailableQuery) params() map[string]any {
	params := map[string]any{}
	for k, v := range q.Extra {
		params[k] = v
	}
	for k, v := range map[string]string{
		"area_code":      q.AreaCode,
		"in_region":      q.InRegion,
		"in_postal_code": q.InPostalCode,
		"contains":       q.Contains,
	} {
		if v != "" {
			params[k] = v
		}
	}
	if q.Limit > 0 {
		params["limit"] = q.Limit
	}
	return params
}

// NumberService manages phone numbers
type NumberService struct {
	crud[*Number]
}

// Available searches numbers that can be bought
func (s *NumberService) Available(ctx context.Context, q AvailableQuery) ([]*Number, error) {
	country := strings.ToUpper(q.CountryCode)
	if country == "" {
		country = "US"
	}
	numberType := strings.ToLower(q.NumberType)
	if numberType == "" {
		numberType = "local"
	}

	path := s.kind.CustomPath(s.c.AccountID(), "", nil, "/available/"+country+"/"+numberType)
	body, err := s.c.Do(ctx, http.MethodGet, path, q.params(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search available numbers: %w", err)
	}
	rs, err := resource.BuildList(s.kind, "", body)
	if err != nil {
		return nil, err
	}
	return wrapAll(rs, wrapNumber), nil
}

// Buy purchases n. Any id on n is cleared first, so an entry returned by
// Available can be bought directly.
func (s *NumberService) Buy(ctx context.Context, n *Number) error {
	n.SetID(nil)
	return s.Save(ctx, n)
}

// BuyLocal purchases n as a local number
func (s *NumberService) BuyLocal(ctx context.Context, n *Number) error {
	n.Set("phone_number_type", "local")
	return s.Save(ctx, n)
}

// Lookup returns carrier information for phoneNumber
func (s *NumberService) Lookup(ctx context.Context, phoneNumber string) (*NumberInfo, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: phone number is required", requestor.ErrResource)
	}
	path := s.kind.CustomPath(s.c.AccountID(), "", nil, "/lookup")
	body, err := s.c.Do(ctx, http.MethodGet, path, map[string]any{"phone_number": phoneNumber}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", phoneNumber, err)
	}
	resp, _ := body.(map[string]any)
	info, ok := resp["number_info"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: lookup response has no number_info", requestor.ErrResource)
	}
	return &NumberInfo{Resource: resource.New(NumberInfoKind, info)}, nil
}

// TaggedNumbers lists numbers by tag. query may hold "contains" and
// "notcontains" filters as map[string]string plus paging parameters.
func (s *NumberService) TaggedNumbers(ctx context.Context, query map[string]any) ([]*Number, error) {
	path := s.kind.CustomPath(s.c.AccountID(), "", nil, "/tags")
	body, err := s.c.Do(ctx, http.MethodGet, path, inflect.FormatTagFilter(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tagged numbers: %w", err)
	}
	rs, err := resource.BuildPage(s.kind, body)
	if err != nil {
		return nil, err
	}
	return wrapAll(rs, wrapNumber), nil
}

// RemoveTag deletes the tag key from n and refreshes n's tags. It reports
// whether the service returned the updated number.
func (s *NumberService) RemoveTag(ctx context.Context, n *Number, key string) (bool, error) {
	if _, ok := n.Tags()[key]; !ok {
		return false, fmt.Errorf("%w: tag with key %q does not exist", requestor.ErrResource, key)
	}

	path := s.kind.CustomPath(s.c.AccountID(), "", n.ID(), "/tags")
	payload := map[string]any{"tags": map[string]any{key: ""}}
	body, err := s.c.Do(ctx, http.MethodDelete, path, nil, payload)
	if err != nil {
		return false, fmt.Errorf("failed to remove tag %q: %w", key, err)
	}

	resp, _ := body.(map[string]any)
	updated, ok := resp[s.kind.Singular].(map[string]any)
	if !ok {
		return false, nil
	}
	n.Set("tags", updated["tags"])
	return true, nil
}
