package myinvois

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// ValidateTaxpayerTIN asks the authority whether a TIN exists and matches
// the given identity document (NRIC, passport, business registration or army
// number). A 404 from the authority means "no such taxpayer" and is reported
// as (false, nil); absence is an answer, not a failure.
func (c *Client) ValidateTaxpayerTIN(ctx context.Context, tin string, idType TaxpayerIDType, idValue string) (bool, error) {
	if err := ValidateTIN(tin); err != nil {
		return false, err
	}
	if err := ValidateTaxpayerIDType(idType); err != nil {
		return false, err
	}
	if idValue == "" {
		return false, fieldError("idValue", "idValue is required")
	}

	err := c.do(ctx, apiCall{
		op:     "validate taxpayer tin",
		method: http.MethodGet,
		path:   apiBasePath + "/taxpayer/validate/" + url.PathEscape(tin),
		query: url.Values{
			"idType":  {string(idType)},
			"idValue": {idValue},
		},
	})
	if err == nil {
		return true, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}
