package dkr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Document represents a document in the DKR library.
type Document struct {
	DocID       string   `json:"doc_id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	FilePath    *string  `json:"file_path,omitempty"`
	VideoPath   *string  `json:"video_path,omitempty"`
	SummaryPath *string  `json:"summary_path,omitempty"`
	PageCount   int      `json:"page_count"`
	Keywords    []string `json:"keywords,omitempty"`
	UploadTime  *string  `json:"upload_time,omitempty"`
}

// UploadedAt parses UploadTime. ok is false when the field is absent or
// not a recognizable timestamp.
func (d Document) UploadedAt() (t time.Time, ok bool) {
	if d.UploadTime == nil {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(*d.UploadTime)
	return t, err == nil
}

// timestampLayouts are tried in order by ParseTimestamp. The backend writes
// naive ISO 8601 local times; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp strings the server emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", s)
}

// DocumentMetadata describes an uploaded file and its derived video.
// VideoSize and CompressionRatio are computed by the server.
type DocumentMetadata struct {
	Filename         string  `json:"filename"`
	FileSize         int64   `json:"file_size"`
	PageCount        int     `json:"page_count"`
	UploadTime       string  `json:"upload_time"`
	VideoPath        string  `json:"video_path"`
	VideoSize        int64   `json:"video_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// Category is a document category with its document count.
type Category struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	DocumentCount int    `json:"document_count"`
}

// SourceReference points at the page an answer was drawn from.
type SourceReference struct {
	DocID          string  `json:"doc_id"`
	DocTitle       string  `json:"doc_title"`
	PageNumber     int     `json:"page_number"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AgentStep is one step of the agent's layered search.
type AgentStep struct {
	Step        int            `json:"step"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Layer       *string        `json:"layer,omitempty"` // Library, Category, Document, Page
	Result      map[string]any `json:"result,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
}

// StepType tags an ExecutionStep.
type StepType string

const (
	StepUser       StepType = "user"
	StepToolCall   StepType = "tool_call"
	StepToolResult StepType = "tool_result"
	StepAIResponse StepType = "ai_response"
)

// ExecutionStep is one message in the agent's execution trace.
type ExecutionStep struct {
	Step     int             `json:"step,omitempty"`
	Type     StepType        `json:"type"`
	ToolName string          `json:"tool_name,omitempty"`
	ToolArgs json.RawMessage `json:"tool_args,omitempty"`
	Content  string          `json:"content,omitempty"`
}

// QueryRequest is a natural-language query. Context and Options are
// forwarded to the server as-is.
type QueryRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// ErrQueryFailed is wrapped by the errors Result returns for unsuccessful
// query and agent responses.
var ErrQueryFailed = errors.New("query failed")

// QueryResponse is the result of a query. Answer is meaningful only when
// Success is true, Error only when it is false.
type QueryResponse struct {
	Success        bool            `json:"success"`
	Answer         string          `json:"answer,omitempty"`
	ExecutionSteps []ExecutionStep `json:"execution_steps,omitempty"`
	ProcessingTime float64         `json:"processing_time"`
	Error          string          `json:"error,omitempty"`
}

// Result returns the answer, or an error wrapping ErrQueryFailed.
func (r *QueryResponse) Result() (string, error) {
	return result(r.Success, r.Answer, r.Error)
}

// AgentResponse is the result of an agent invocation.
type AgentResponse struct {
	Success        bool              `json:"success"`
	Answer         string            `json:"answer,omitempty"`
	Sources        []SourceReference `json:"sources,omitempty"`
	Confidence     *float64          `json:"confidence,omitempty"`
	TokenUsage     map[string]int    `json:"token_usage,omitempty"`
	AgentSteps     []AgentStep       `json:"agent_steps,omitempty"`
	ExecutionSteps []ExecutionStep   `json:"execution_steps,omitempty"`
	ProcessingTime float64           `json:"processing_time"`
	Error          string            `json:"error,omitempty"`
}

// Result returns the answer, or an error wrapping ErrQueryFailed.
func (r *AgentResponse) Result() (string, error) {
	return result(r.Success, r.Answer, r.Error)
}

func result(success bool, answer, msg string) (string, error) {
	if success {
		return answer, nil
	}
	if msg == "" {
		return "", ErrQueryFailed
	}
	return "", fmt.Errorf("%w: %s", ErrQueryFailed, msg)
}

// UploadResult is returned after a document is uploaded and classified.
type UploadResult struct {
	Success  bool   `json:"success"`
	DocID    string `json:"doc_id,omitempty"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

// DeleteResult is returned after a document is deleted.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Health is the liveness payload of the DKR backend.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// LibraryOverview maps each category name to its summary.
type LibraryOverview struct {
	Success    bool                       `json:"success"`
	Categories map[string]json.RawMessage `json:"library_overview"`
}

// LibraryCategory is a category as listed by the agent library endpoint.
type LibraryCategory struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

// Stats summarizes the library.
type Stats struct {
	TotalDocuments  int                        `json:"total_documents"`
	TotalCategories int                        `json:"total_categories"`
	Categories      map[string]json.RawMessage `json:"categories"`
}

// ListOptions configures ListDocuments.
type ListOptions struct {
	Category string // Only documents in this category, empty means all
}

func (o *ListOptions) values() url.Values {
	if o == nil {
		return nil
	}
	q := url.Values{}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	return q
}

// categoryList accepts either a bare array or the
// {"success": ..., "categories": [...]} envelope.
type categoryList []Category

func (l *categoryList) UnmarshalJSON(data []byte) error {
	var items []Category
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}
	var envelope struct {
		Categories []Category `json:"categories"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	*l = envelope.Categories
	return nil
}
