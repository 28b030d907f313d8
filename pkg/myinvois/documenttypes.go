package myinvois

import (
	"context"
	"net/http"
	"strconv"
)

// GetDocumentTypes lists the authority's document type catalogue: every
// accepted kind of document with its published schema versions.
func (c *Client) GetDocumentTypes(ctx context.Context) ([]DocumentType, error) {
	var response documentTypesResponse
	err := c.do(ctx, apiCall{
		op:     "get document types",
		method: http.MethodGet,
		path:   apiBasePath + "/documenttypes",
		out:    &response,
	})
	if err != nil {
		return nil, err
	}
	return response.Result, nil
}

// GetDocumentType fetches a single catalogue entry by its identifier.
func (c *Client) GetDocumentType(ctx context.Context, id int) (*DocumentType, error) {
	if id <= 0 {
		return nil, fieldError("id", "document type id must be positive")
	}

	var docType DocumentType
	err := c.do(ctx, apiCall{
		op:     "get document type",
		method: http.MethodGet,
		path:   apiBasePath + "/documenttypes/" + strconv.Itoa(id),
		out:    &docType,
	})
	if err != nil {
		return nil, err
	}
	return &docType, nil
}

// FindDocumentTypeByCode scans the catalogue for the entry carrying the
// given invoice type code. Absence is (nil, false, nil), not an error; the
// catalogue legitimately evolves between environments.
func (c *Client) FindDocumentTypeByCode(ctx context.Context, code int) (*DocumentType, bool, error) {
	types, err := c.GetDocumentTypes(ctx)
	if err != nil {
		return nil, false, err
	}

	for i := range types {
		if types[i].InvoiceTypeCode == code {
			return &types[i], true, nil
		}
	}
	return nil, false, nil
}
