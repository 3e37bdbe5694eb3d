package dkr

import "context"

// ListCategories retrieves all categories in server order.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var result categoryList
	if err := c.send(ctx, listCategoriesEndpoint, listCategoriesEndpoint.Path, nil, nil, &result); err != nil {
		return nil, err
	}
	return []Category(result), nil
}

// Stats retrieves document and category totals.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var result struct {
		Stats Stats `json:"stats"`
	}
	if err := c.send(ctx, statsEndpoint, statsEndpoint.Path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result.Stats, nil
}
