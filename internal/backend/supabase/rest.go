package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"supatodo/internal/service"
)

// errUnfiltered guards against mutating a whole table by accident.
var errUnfiltered = errors.New("refusing to modify rows without a filter")

// table is a service.DataTable bound to one session.
type table struct {
	c  *Client
	hc *http.Client
}

// Tables implements service.TableOpener.
func (c *Client) Tables(ctx context.Context, sess *service.Session) service.DataTable {
	return &table{c: c, hc: c.authorized(ctx, sess)}
}

func tablePath(name string) string {
	return restPath + "/" + url.PathEscape(name)
}

func filterValues(v url.Values, filters []service.Filter) {
	for _, f := range filters {
		v.Add(f.Column, "eq."+f.Value)
	}
}

func orderParam(order []service.Order) string {
	parts := make([]string, 0, len(order))
	for _, o := range order {
		p := o.Column + ".asc"
		if o.Descending {
			p = o.Column + ".desc"
		}
		if o.NullsFirst {
			p += ".nullsfirst"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ",")
}

// Select implements service.DataTable.
func (t *table) Select(ctx context.Context, name string, q service.Query, dst any) error {
	v := url.Values{"select": {"*"}}
	filterValues(v, q.Filters)
	if len(q.Order) > 0 {
		v.Set("order", orderParam(q.Order))
	}
	return t.c.do(ctx, t.hc, http.MethodGet, tablePath(name), v, nil, nil, dst)
}

// Insert implements service.DataTable.
func (t *table) Insert(ctx context.Context, name string, row any, dst any) error {
	var created []json.RawMessage
	header := http.Header{"Prefer": {"return=representation"}}
	if err := t.c.do(ctx, t.hc, http.MethodPost, tablePath(name), nil, []any{row}, header, &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return fmt.Errorf("insert into %s returned no rows", name)
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(created[0], dst); err != nil {
		return fmt.Errorf("failed to decode created row: %w", err)
	}
	return nil
}

// Update implements service.DataTable.
func (t *table) Update(ctx context.Context, name string, filters []service.Filter, patch any) error {
	if len(filters) == 0 {
		return errUnfiltered
	}
	v := url.Values{}
	filterValues(v, filters)
	header := http.Header{"Prefer": {"return=minimal"}}
	return t.c.do(ctx, t.hc, http.MethodPatch, tablePath(name), v, patch, header, nil)
}

// Delete implements service.DataTable.
func (t *table) Delete(ctx context.Context, name string, filters []service.Filter) error {
	if len(filters) == 0 {
		return errUnfiltered
	}
	v := url.Values{}
	filterValues(v, filters)
	return t.c.do(ctx, t.hc, http.MethodDelete, tablePath(name), v, nil, nil, nil)
}
