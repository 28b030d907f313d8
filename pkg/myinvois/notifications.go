package myinvois

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// GetNotifications pages through messages the authority has sent to the
// taxpayer: validation outcomes, cancellation notices, and the like.
func (c *Client) GetNotifications(ctx context.Context, filter NotificationFilter) (*NotificationsPage, error) {
	fe := fieldErrors{}
	validateDateRange(fe, "date", filter.DateFrom, filter.DateTo, MaxSearchWindow)
	validatePagination(fe, filter.PageNo, filter.PageSize)
	if err := fe.err("invalid notification filter"); err != nil {
		return nil, err
	}

	query := url.Values{}
	if !filter.DateFrom.IsZero() {
		query.Set("dateFrom", filter.DateFrom.UTC().Format(time.RFC3339))
	}
	if !filter.DateTo.IsZero() {
		query.Set("dateTo", filter.DateTo.UTC().Format(time.RFC3339))
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	if filter.Language != "" {
		query.Set("language", filter.Language)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Channel != "" {
		query.Set("channel", filter.Channel)
	}
	applyPagination(query, filter.PageNo, filter.PageSize)

	var page NotificationsPage
	err := c.do(ctx, apiCall{
		op:     "get notifications",
		method: http.MethodGet,
		path:   apiBasePath + "/notifications/taxpayer",
		query:  query,
		out:    &page,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}
