// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package follow

import (
	"net/url"
	"strconv"
	"time"
)

// Order selects the timestamp ordering of a report listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

const (
	// DefaultLimit is what the backend applies when no limit is sent.
	DefaultLimit = 100
	// MaxLimit is the largest page the backend will return.
	MaxLimit = 10000
)

// ReportParams filters a report listing. Since and Until are exclusive
// bounds; zero values are omitted and the backend falls back to the epoch
// and the current time.
type ReportParams struct {
	Since time.Time
	Until time.Time
	Limit int
	Order Order
}

// Normalized returns a copy with Limit clamped to [1, MaxLimit] and Order defaulted.
func (p ReportParams) Normalized() ReportParams {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	if p.Order != OrderAsc {
		p.Order = OrderDesc
	}
	return p
}

func (p ReportParams) query() url.Values {
	p = p.Normalized()
	q := rangeQuery(p.Since, p.Until)
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("order", string(p.Order))
	return q
}

func rangeQuery(since, until time.Time) url.Values {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	if !until.IsZero() {
		q.Set("until", until.UTC().Format(time.RFC3339Nano))
	}
	return q
}
