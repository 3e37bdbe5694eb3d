package dkr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Encoding is the body encoding policy of an endpoint.
type Encoding int

const (
	// EncodingNone sends no body.
	EncodingNone Encoding = iota
	// EncodingJSON sends the body as a JSON document.
	EncodingJSON
	// EncodingMultipart sends a *File as a single multipart "file" part.
	EncodingMultipart
)

// String returns the name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingJSON:
		return "json"
	case EncodingMultipart:
		return "multipart"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// endpoint describes one backend capability. Path may contain {name}
// placeholders that are filled, in order, by expand.
type endpoint struct {
	Op       string
	Method   string
	Path     string
	Encoding Encoding
}

var (
	healthEndpoint            = endpoint{Op: "Health", Method: http.MethodGet, Path: "/health"}
	listDocumentsEndpoint     = endpoint{Op: "ListDocuments", Method: http.MethodGet, Path: "/documents/"}
	uploadDocumentEndpoint    = endpoint{Op: "UploadDocument", Method: http.MethodPost, Path: "/documents/upload", Encoding: EncodingMultipart}
	getDocumentEndpoint       = endpoint{Op: "GetDocument", Method: http.MethodGet, Path: "/documents/{doc_id}"}
	deleteDocumentEndpoint    = endpoint{Op: "DeleteDocument", Method: http.MethodDelete, Path: "/documents/{doc_id}"}
	queryEndpoint             = endpoint{Op: "Query", Method: http.MethodPost, Path: "/query/", Encoding: EncodingJSON}
	askEndpoint               = endpoint{Op: "Ask", Method: http.MethodPost, Path: "/agent/ask", Encoding: EncodingJSON}
	listCategoriesEndpoint    = endpoint{Op: "ListCategories", Method: http.MethodGet, Path: "/categories"}
	libraryOverviewEndpoint   = endpoint{Op: "LibraryOverview", Method: http.MethodGet, Path: "/agent/library/overview"}
	libraryCategoriesEndpoint = endpoint{Op: "ListLibraryCategories", Method: http.MethodGet, Path: "/agent/library/categories"}
	categoryDocumentsEndpoint = endpoint{Op: "ListCategoryDocuments", Method: http.MethodGet, Path: "/agent/library/documents/{category}"}
	statsEndpoint             = endpoint{Op: "Stats", Method: http.MethodGet, Path: "/config/stats"}
)

// expand fills the path placeholders with escaped params.
func (e endpoint) expand(params ...string) (string, error) {
	var b strings.Builder
	rest := e.Path
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", e.Path)
		}
		name := rest[start+1 : start+end]
		if len(params) == 0 {
			return "", fmt.Errorf("missing value for {%s}", name)
		}
		switch params[0] {
		case "":
			return "", fmt.Errorf("%s is required", name)
		case ".", "..":
			return "", fmt.Errorf("invalid %s %q", name, params[0])
		}
		b.WriteString(rest[:start])
		b.WriteString(url.PathEscape(params[0]))
		params = params[1:]
		rest = rest[start+end+1:]
	}
	if len(params) > 0 {
		return "", fmt.Errorf("%d unused path parameters for %q", len(params), e.Path)
	}
	return b.String(), nil
}

// File is an upload payload. Name and ContentType become the filename and
// Content-Type of the multipart part.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encode renders body according to the encoding policy. It returns the
// request body and the Content-Type to set, if any.
func (e Encoding) encode(body any) (*bytes.Reader, string, error) {
	switch e {
	case EncodingNone:
		if body != nil {
			return nil, "", errors.New("endpoint takes no body")
		}
		return nil, "", nil
	case EncodingJSON:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	case EncodingMultipart:
		file, ok := body.(*File)
		if !ok {
			return nil, "", fmt.Errorf("multipart body must be *File, got %T", body)
		}
		if file == nil {
			return nil, "", errors.New("file is nil")
		}
		return encodeMultipart(file)
	default:
		return nil, "", fmt.Errorf("unknown encoding %v", e)
	}
}

func encodeMultipart(file *File) (*bytes.Reader, string, error) {
	if file.Name == "" {
		return nil, "", errors.New("file name is required")
	}
	if file.Reader == nil {
		return nil, "", errors.New("file reader is nil")
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), w.FormDataContentType(), nil
}
