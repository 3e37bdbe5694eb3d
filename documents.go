package dkr

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// ListDocuments retrieves documents in server order, optionally filtered.
func (c *Client) ListDocuments(ctx context.Context, opts *ListOptions) ([]Document, error) {
	var result []Document
	if err := c.send(ctx, listDocumentsEndpoint, listDocumentsEndpoint.Path, opts.values(), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetDocument retrieves a single document by ID.
func (c *Client) GetDocument(ctx context.Context, docID string) (*Document, error) {
	path, err := getDocumentEndpoint.expand(docID)
	if err != nil {
		return nil, &RequestError{Op: getDocumentEndpoint.Op, Message: "invalid path", Err: err}
	}

	var result Document
	if err := c.send(ctx, getDocumentEndpoint, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteDocument removes a document by ID. Deleting an unknown ID fails
// with a ServerError.
func (c *Client) DeleteDocument(ctx context.Context, docID string) (*DeleteResult, error) {
	path, err := deleteDocumentEndpoint.expand(docID)
	if err != nil {
		return nil, &RequestError{Op: deleteDocumentEndpoint.Op, Message: "invalid path", Err: err}
	}

	var result DeleteResult
	if err := c.send(ctx, deleteDocumentEndpoint, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadDocument uploads file as a single multipart "file" part.
// The server converts and classifies it before answering.
func (c *Client) UploadDocument(ctx context.Context, file *File) (*UploadResult, error) {
	var result UploadResult
	if err := c.send(ctx, uploadDocumentEndpoint, uploadDocumentEndpoint.Path, nil, file, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadDocumentFile opens the file at path and uploads it. The content
// type is derived from the file extension.
func (c *Client) UploadDocumentFile(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &RequestError{Op: uploadDocumentEndpoint.Op, Message: "open file", Err: err}
	}
	defer f.Close()

	return c.UploadDocument(ctx, &File{
		Name:        filepath.Base(path),
		ContentType: contentTypeFor(path),
		Reader:      f,
	})
}

func contentTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// String returns the title and ID of the document.
func (d Document) String() string {
	return fmt.Sprintf("%s (%s)", d.Title, d.DocID)
}
