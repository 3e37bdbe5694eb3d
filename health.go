package dkr

import (
	"context"
	"encoding/json"
)

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.send(ctx, healthEndpoint, healthEndpoint.Path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthRaw probes the liveness endpoint and returns the payload untouched,
// leaving its interpretation to the caller.
func (c *Client) HealthRaw(ctx context.Context) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.send(ctx, healthEndpoint, healthEndpoint.Path, nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
