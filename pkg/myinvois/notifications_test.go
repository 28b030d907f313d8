package myinvois_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merbau/myinvois/pkg/myinvois"
)

func TestGetNotifications(t *testing.T) {
	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	auth := newAuthority(t)
	auth.scriptAPI(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1.0/notifications/taxpayer", r.URL.Path)
		query := r.URL.Query()
		require.Equal(t, from.Format(time.RFC3339), query.Get("dateFrom"))
		require.Equal(t, to.Format(time.RFC3339), query.Get("dateTo"))
		require.Equal(t, "en", query.Get("language"))
		require.Equal(t, "10", query.Get("pageSize"))

		writeJSON(w, http.StatusOK, map[string]any{
			"result": []map[string]any{
				{
					"notificationId":      "NTF-001",
					"notificationSubject": "Document validated",
					"typeId":              3,
					"typeName":            "Document validation",
					"status":              "delivered",
					"deliveryAttempts": []map[string]any{
						{"attemptDateTime": "2026-01-11T08:00:00Z", "status": "delivered"},
					},
				},
			},
			"metadata": map[string]any{"totalCount": 1, "totalPages": 1},
		})
	})
	client := newTestClient(t, auth)

	page, err := client.GetNotifications(context.Background(), myinvois.NotificationFilter{
		DateFrom: from,
		DateTo:   to,
		Language: "en",
		PageSize: 10,
	})
	require.NoError(t, err)

	require.Len(t, page.Result, 1)
	assert.Equal(t, "NTF-001", page.Result[0].NotificationID)
	assert.Equal(t, 3, page.Result[0].TypeID)
	require.Len(t, page.Result[0].DeliveryAttempts, 1)
}

func TestGetNotificationsFilterValidation(t *testing.T) {
	auth := newAuthority(t)
	client := newTestClient(t, auth)
	ctx := context.Background()

	// Half a window.
	_, err := client.GetNotifications(ctx, myinvois.NotificationFilter{
		DateFrom: time.Now(),
	})
	var valErr *myinvois.ValidationError
	require.ErrorAs(t, err, &valErr)

	// Oversized page.
	_, err = client.GetNotifications(ctx, myinvois.NotificationFilter{
		PageSize: myinvois.MaxPageSize + 1,
	})
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "pageSize")

	assert.Equal(t, 0, auth.apiCount())
}
