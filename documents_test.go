package dkr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestClient_ListDocuments(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %v, want GET", r.Method)
			}
			if r.URL.Path != "/api/v1/documents/" {
				t.Errorf("path = %v, want /api/v1/documents/", r.URL.Path)
			}
			if r.URL.RawQuery != "" {
				t.Errorf("query = %v, want empty", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"doc_id":"doc_2","title":"Zeta","category":"Finance","page_count":2},
				{"doc_id":"doc_1","title":"Alpha","category":"Legal","page_count":9,"keywords":["contract"]}
			]`))
		}))
		defer server.Close()

		c := NewClient(server.URL + "/api/v1")
		docs, err := c.ListDocuments(context.Background(), nil)
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("len(docs) = %d, want 2", len(docs))
		}
		// Server order is preserved.
		if docs[0].DocID != "doc_2" || docs[1].DocID != "doc_1" {
			t.Errorf("order = [%s %s], want [doc_2 doc_1]", docs[0].DocID, docs[1].DocID)
		}
		if !reflect.DeepEqual(docs[1].Keywords, []string{"contract"}) {
			t.Errorf("keywords = %v, want [contract]", docs[1].Keywords)
		}
	})

	t.Run("with category", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("category"); got != "Machine Learning" {
				t.Errorf("category = %v, want Machine Learning", got)
			}
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		docs, err := c.ListDocuments(context.Background(), &ListOptions{Category: "Machine Learning"})
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("len(docs) = %d, want 0", len(docs))
		}
	})

	t.Run("error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"library index unreadable"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		_, err := c.ListDocuments(context.Background(), nil)
		serverErr, ok := err.(*ServerError)
		if !ok {
			t.Fatalf("expected *ServerError, got %T", err)
		}
		if serverErr.Op != "ListDocuments" {
			t.Errorf("op = %v, want ListDocuments", serverErr.Op)
		}
	})
}

func TestClient_GetDocument(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/documents/d1" {
				t.Errorf("path = %v, want /documents/d1", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"doc_id":"d1","title":"T","category":"C","page_count":3}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		doc, err := c.GetDocument(context.Background(), "d1")
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}

		want := &Document{DocID: "d1", Title: "T", Category: "C", PageCount: 3}
		if !reflect.DeepEqual(doc, want) {
			t.Errorf("document = %+v, want %+v", doc, want)
		}
		if doc.FilePath != nil || doc.VideoPath != nil || doc.SummaryPath != nil || doc.UploadTime != nil || doc.Keywords != nil {
			t.Errorf("optional fields should be absent: %+v", doc)
		}
	})

	t.Run("optional fields", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"doc_id":"d2","title":"Paper","category":"AI","page_count":12,
				"file_path":"data/documents/d2.pdf","video_path":"data/videos/d2.mp4",
				"summary_path":"data/summaries/d2.json","keywords":["ocr","video"],
				"upload_time":"2025-01-15T10:30:45"
			}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		doc, err := c.GetDocument(context.Background(), "d2")
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if doc.VideoPath == nil || *doc.VideoPath != "data/videos/d2.mp4" {
			t.Errorf("video_path = %v, want data/videos/d2.mp4", doc.VideoPath)
		}
		if doc.UploadTime == nil || *doc.UploadTime != "2025-01-15T10:30:45" {
			t.Errorf("upload_time = %v", doc.UploadTime)
		}
		if len(doc.Keywords) != 2 {
			t.Errorf("len(keywords) = %d, want 2", len(doc.Keywords))
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		_, err := c.GetDocument(context.Background(), "missing-id")

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected *ServerError, got %T", err)
		}
		if serverErr.Op != "GetDocument" {
			t.Errorf("op = %v, want GetDocument", serverErr.Op)
		}
		var payload map[string]any
		if err := json.Unmarshal(serverErr.Payload, &payload); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if !reflect.DeepEqual(payload, map[string]any{"error": "not found"}) {
			t.Errorf("payload = %v, want {error: not found}", payload)
		}
	})

	t.Run("escapes ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.EscapedPath() != "/documents/a%2Fb" {
				t.Errorf("escaped path = %v, want /documents/a%%2Fb", r.URL.EscapedPath())
			}
			_, _ = w.Write([]byte(`{"doc_id":"a/b"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		if _, err := c.GetDocument(context.Background(), "a/b"); err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
	})

	t.Run("empty ID", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1")
		_, err := c.GetDocument(context.Background(), "")
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected *RequestError, got %T", err)
		}
	})
}

func TestClient_DeleteDocument(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("method = %v, want DELETE", r.Method)
			}
			if r.URL.Path != "/documents/doc_1" {
				t.Errorf("path = %v, want /documents/doc_1", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"success":true,"message":"document doc_1 deleted"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		result, err := c.DeleteDocument(context.Background(), "doc_1")
		if err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if !result.Success {
			t.Error("success = false, want true")
		}
	})

	t.Run("repeated delete", func(t *testing.T) {
		deleted := map[string]bool{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/documents/")
			if deleted[id] {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"document ` + id + ` does not exist"}`))
				return
			}
			deleted[id] = true
			_, _ = w.Write([]byte(`{"success":true,"message":"deleted"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		if _, err := c.DeleteDocument(context.Background(), "doc_1"); err != nil {
			t.Fatalf("first DeleteDocument failed: %v", err)
		}
		_, err := c.DeleteDocument(context.Background(), "doc_1")
		if !IsNotFound(err) {
			t.Fatalf("second delete: expected 404 ServerError, got %v", err)
		}
	})

	t.Run("empty ID", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1")
		_, err := c.DeleteDocument(context.Background(), "")
		if KindOf(err) != KindRequest {
			t.Errorf("kind = %v, want request", KindOf(err))
		}
	})

	t.Run("dot segment IDs are not sent", func(t *testing.T) {
		var requests []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.Method+" "+r.URL.Path)
			_, _ = w.Write([]byte(`{"success":true,"message":"deleted"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL + "/api/v1")
		if _, err := c.DeleteDocument(context.Background(), ".."); KindOf(err) != KindRequest {
			t.Errorf("DeleteDocument(..) kind = %v, want request (err = %v)", KindOf(err), err)
		}
		if _, err := c.GetDocument(context.Background(), "."); KindOf(err) != KindRequest {
			t.Errorf("GetDocument(.) kind = %v, want request (err = %v)", KindOf(err), err)
		}
		if len(requests) != 0 {
			t.Errorf("requests = %v, want none", requests)
		}
	})
}

func TestClient_UploadDocument(t *testing.T) {
	t.Run("multipart with one file part", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/documents/upload" {
				t.Errorf("request = %s %s, want POST /documents/upload", r.Method, r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer up-token" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}

			mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "multipart/form-data" {
				t.Errorf("Content-Type = %q, want multipart/form-data", r.Header.Get("Content-Type"))
				http.Error(w, "bad content type", http.StatusBadRequest)
				return
			}

			mr := multipart.NewReader(r.Body, params["boundary"])
			var parts int
			for {
				part, err := mr.NextPart()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Errorf("NextPart failed: %v", err)
					break
				}
				parts++
				if part.FormName() != "file" {
					t.Errorf("form name = %v, want file", part.FormName())
				}
				if part.FileName() != "report.pdf" {
					t.Errorf("file name = %v, want report.pdf", part.FileName())
				}
				if ct := part.Header.Get("Content-Type"); ct != "application/pdf" {
					t.Errorf("part Content-Type = %v, want application/pdf", ct)
				}
				data, _ := io.ReadAll(part)
				if string(data) != "%PDF-1.7 body" {
					t.Errorf("content = %q", data)
				}
			}
			if parts != 1 {
				t.Errorf("parts = %d, want 1", parts)
			}

			_, _ = w.Write([]byte(`{"success":true,"doc_id":"doc_20250115_103045_ab12cd34","category":"Finance","message":"uploaded"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithCredentials(StaticToken("up-token")))
		result, err := c.UploadDocument(context.Background(), &File{
			Name:        "report.pdf",
			ContentType: "application/pdf",
			Reader:      strings.NewReader("%PDF-1.7 body"),
		})
		if err != nil {
			t.Fatalf("UploadDocument failed: %v", err)
		}
		if result.DocID != "doc_20250115_103045_ab12cd34" || result.Category != "Finance" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("from path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.pdf")
		if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile failed: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			if header.Filename != "notes.pdf" {
				t.Errorf("filename = %v, want notes.pdf", header.Filename)
			}
			if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("Content-Type = %v, want application/pdf", ct)
			}
			_, _ = w.Write([]byte(`{"success":true,"doc_id":"doc_1","category":"Other","message":"ok"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		if _, err := c.UploadDocumentFile(context.Background(), path); err != nil {
			t.Fatalf("UploadDocumentFile failed: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1")
		_, err := c.UploadDocumentFile(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
		if KindOf(err) != KindRequest {
			t.Errorf("kind = %v, want request", KindOf(err))
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1")
		for _, f := range []*File{nil, {Reader: strings.NewReader("x")}, {Name: "a.pdf"}} {
			if _, err := c.UploadDocument(context.Background(), f); KindOf(err) != KindRequest {
				t.Errorf("UploadDocument(%+v) kind = %v, want request", f, KindOf(err))
			}
		}
	})

	t.Run("unsupported file type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"only PDF files are supported"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		_, err := c.UploadDocument(context.Background(), &File{Name: "a.txt", Reader: strings.NewReader("x")})
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected *ServerError, got %T", err)
		}
		if serverErr.Detail() != "only PDF files are supported" {
			t.Errorf("Detail() = %q", serverErr.Detail())
		}
	})
}
