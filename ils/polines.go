package ils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// POLine is the slice of the Alma PO-line object the creation flow reads
// back. The request body is passed through untouched because operators
// hand-build those JSON files against the full Alma schema.
type POLine struct {
	Number           string           `json:"number"`
	ResourceMetadata ResourceMetadata `json:"resource_metadata"`
}

// ResourceMetadata carries the bib identifiers on a PO line.
type ResourceMetadata struct {
	Title string     `json:"title,omitempty"`
	MMSID *CodeValue `json:"mms_id,omitempty"`
}

// MMSIDValue returns the linked bib's MMS ID, or "" when Alma has not
// matched one yet.
func (p *POLine) MMSIDValue() string {
	if p.ResourceMetadata.MMSID == nil {
		return ""
	}
	return p.ResourceMetadata.MMSID.Value
}

// CreatePOLine posts a raw PO-line body and returns the created line.
// Manual review is suppressed so unattended batches complete.
func (c *Client) CreatePOLine(ctx context.Context, body json.RawMessage) (*POLine, error) {
	params := url.Values{}
	params.Set("requires_manual_review", "false")

	var created POLine
	if err := c.do(ctx, "POST", "/acq/po-lines", params, body, &created); err != nil {
		return nil, fmt.Errorf("creating PO line: %w", err)
	}
	return &created, nil
}

// Bib is the subset of a bib record the lookup commands report.
type Bib struct {
	MMSID          string   `json:"mms_id"`
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	NetworkNumbers []string `json:"network_number"`
}

// GetBib retrieves a bib record by MMS ID.
func (c *Client) GetBib(ctx context.Context, mmsID string) (*Bib, error) {
	var bib Bib
	if err := c.do(ctx, "GET", "/bibs/"+mmsID, nil, nil, &bib); err != nil {
		return nil, fmt.Errorf("retrieving bib %s: %w", mmsID, err)
	}
	return &bib, nil
}
