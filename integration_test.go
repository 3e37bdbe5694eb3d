//go:build integration
// +build integration

package dkr_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jason-riddle/dkr-go"
)

func getTestClient(t *testing.T) *dkr.Client {
	baseURL := os.Getenv("DKR_API_BASE_URL")
	if baseURL == "" {
		t.Skip("DKR_API_BASE_URL not set, skipping integration test")
	}

	return dkr.NewClient(baseURL,
		dkr.WithCredentials(dkr.EnvToken("DKR_API_TOKEN")),
		dkr.WithTimeout(70*time.Second),
	)
}

func TestIntegration_Health(t *testing.T) {
	client := getTestClient(t)

	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	t.Logf("Backend %s %s is %s", health.Service, health.Version, health.Status)
}

func TestIntegration_ListDocuments(t *testing.T) {
	client := getTestClient(t)

	ctx := context.Background()
	docs, err := client.ListDocuments(ctx, nil)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}

	t.Logf("Found %d documents", len(docs))

	if len(docs) > 0 {
		category := docs[0].Category
		filtered, err := client.ListDocuments(ctx, &dkr.ListOptions{Category: category})
		if err != nil {
			t.Fatalf("ListDocuments with category failed: %v", err)
		}
		for _, doc := range filtered {
			if doc.Category != category {
				t.Errorf("Document %s has category %q, want %q", doc.DocID, doc.Category, category)
			}
		}
	}
}

func TestIntegration_GetDocument(t *testing.T) {
	client := getTestClient(t)

	ctx := context.Background()
	docs, err := client.ListDocuments(ctx, nil)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) == 0 {
		t.Skip("No documents available, skipping GetDocument test")
	}

	doc, err := client.GetDocument(ctx, docs[0].DocID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.DocID != docs[0].DocID {
		t.Errorf("Expected document ID %s, got %s", docs[0].DocID, doc.DocID)
	}

	t.Logf("Retrieved document: %s", doc.Title)
}

func TestIntegration_GetDocument_NotFound(t *testing.T) {
	client := getTestClient(t)

	_, err := client.GetDocument(context.Background(), "integration-missing-document")
	if err == nil {
		t.Fatal("Expected error for non-existent document, got nil")
	}
	if !dkr.IsNotFound(err) {
		t.Errorf("Expected 404 error, got %v", err)
	}
}

func TestIntegration_UploadAndDelete(t *testing.T) {
	path := os.Getenv("DKR_TEST_PDF")
	if path == "" {
		t.Skip("DKR_TEST_PDF not set, skipping upload test")
	}
	client := getTestClient(t)
	ctx := context.Background()

	uploaded, err := client.UploadDocumentFile(ctx, path)
	if err != nil {
		t.Fatalf("UploadDocumentFile failed: %v", err)
	}
	if !uploaded.Success || uploaded.DocID == "" {
		t.Fatalf("Upload result = %+v", uploaded)
	}

	if _, err := client.DeleteDocument(ctx, uploaded.DocID); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if _, err := client.GetDocument(ctx, uploaded.DocID); !dkr.IsNotFound(err) {
		t.Errorf("GetDocument after delete: %v, want not found", err)
	}
}

func TestIntegration_Query(t *testing.T) {
	client := getTestClient(t)

	resp, err := client.Query(context.Background(), &dkr.QueryRequest{Query: "What documents are in the library?"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	answer, err := resp.Result()
	if err != nil {
		t.Logf("Query unsuccessful: %v", err)
		return
	}
	if strings.TrimSpace(answer) == "" {
		t.Error("Successful query returned an empty answer")
	}
	t.Logf("Answer in %.2fs with %d steps", resp.ProcessingTime, len(resp.ExecutionSteps))
}

func TestIntegration_ListCategories(t *testing.T) {
	client := getTestClient(t)

	categories, err := client.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	for _, c := range categories {
		t.Logf("Category %s: %d documents", c.Name, c.DocumentCount)
	}
}
