package dkr

import (
	"context"
	"errors"
	"strings"
)

// Query submits a natural-language query. The call may take up to the
// client timeout; ProcessingTime in the response is measured by the server.
func (c *Client) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, &RequestError{Op: queryEndpoint.Op, Message: "invalid query", Err: errors.New("query text is required")}
	}

	var result QueryResponse
	if err := c.send(ctx, queryEndpoint, queryEndpoint.Path, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
