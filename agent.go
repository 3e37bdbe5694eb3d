package dkr

import (
	"context"
	"errors"
	"strings"
)

type askRequest struct {
	Query   string         `json:"query"`
	Options map[string]any `json:"options,omitempty"`
}

// Ask invokes the agent with a free-form query. options is forwarded
// unchecked.
func (c *Client) Ask(ctx context.Context, query string, options map[string]any) (*AgentResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &RequestError{Op: askEndpoint.Op, Message: "invalid query", Err: errors.New("query text is required")}
	}

	var result AgentResponse
	body := askRequest{Query: query, Options: options}
	if err := c.send(ctx, askEndpoint, askEndpoint.Path, nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LibraryOverview retrieves the per-category overview the agent navigates.
func (c *Client) LibraryOverview(ctx context.Context) (*LibraryOverview, error) {
	var result LibraryOverview
	if err := c.send(ctx, libraryOverviewEndpoint, libraryOverviewEndpoint.Path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListLibraryCategories retrieves category names and counts from the agent
// library endpoint.
func (c *Client) ListLibraryCategories(ctx context.Context) ([]LibraryCategory, error) {
	var result struct {
		Categories []LibraryCategory `json:"categories"`
	}
	if err := c.send(ctx, libraryCategoriesEndpoint, libraryCategoriesEndpoint.Path, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// ListCategoryDocuments retrieves the documents filed under category.
func (c *Client) ListCategoryDocuments(ctx context.Context, category string) ([]Document, error) {
	path, err := categoryDocumentsEndpoint.expand(category)
	if err != nil {
		return nil, &RequestError{Op: categoryDocumentsEndpoint.Op, Message: "invalid path", Err: err}
	}

	var result struct {
		Documents []Document `json:"documents"`
	}
	if err := c.send(ctx, categoryDocumentsEndpoint, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Documents, nil
}
