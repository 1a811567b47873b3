// Package mcpadapter exposes the intake pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/fields"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

const (
	ServerName    = "document-intake"
	ServerVersion = "1.0.0"
)

type Tools struct {
	classifier ports.DocumentClassifier
	extractor  ports.FieldExtractor
	documents  ports.DocumentReader
	editor     ports.FieldEditor
	logger     *slog.Logger
}

// NewTools builds the tool set. documents and editor may be nil; the document tools are
// then not registered.
func NewTools(
	classifier ports.DocumentClassifier,
	extractor ports.FieldExtractor,
	documents ports.DocumentReader,
	editor ports.FieldEditor,
	logger *slog.Logger,
) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		classifier: classifier,
		extractor:  extractor,
		documents:  documents,
		editor:     editor,
		logger:     logger,
	}
}

func NewServer(tools *Tools) *server.MCPServer {
	srv := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))
	tools.Register(srv)
	return srv
}

func (t *Tools) Register(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("classify_document",
		mcp.WithDescription("Detect the document type of OCR text (cedula, acta_seguro, contrato or desconocido)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full OCR text of the document.")),
	), t.classifyDocument)

	srv.AddTool(mcp.NewTool("extract_fields",
		mcp.WithDescription("Extract raw and sanitized field values from OCR text. The type is detected when omitted."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full OCR text of the document.")),
		mcp.WithString("document_type", mcp.Description("Document type to extract for."),
			mcp.Enum(documentTypeNames()...)),
	), t.extractFields)

	srv.AddTool(mcp.NewTool("sanitize_field",
		mcp.WithDescription("Rewrite a field value into its canonical form for the field kind."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Field key, e.g. fecha_nacimiento.")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Raw value.")),
	), t.sanitizeField)

	srv.AddTool(mcp.NewTool("validate_field",
		mcp.WithDescription("Check a field value against the format of its kind."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Field key.")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Value to check.")),
	), t.validateField)

	if t.documents != nil {
		srv.AddTool(mcp.NewTool("get_document",
			mcp.WithDescription("Fetch a processed document with its fields and validation state."),
			mcp.WithString("document_id", mcp.Required()),
		), t.getDocument)
	}
	if t.editor != nil {
		srv.AddTool(mcp.NewTool("update_field",
			mcp.WithDescription("Set a document field; the value is sanitized and the document revalidated."),
			mcp.WithString("document_id", mcp.Required()),
			mcp.WithString("key", mcp.Required()),
			mcp.WithString("value", mcp.Required()),
		), t.updateField)
	}
}

type classifyResult struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Title        string              `json:"title"`
}

func (t *Tools) classifyDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docType := t.classifier.Classify(text)
	return jsonResult(classifyResult{DocumentType: docType, Title: docType.SheetTitle()})
}

type extractResult struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Raw          map[string]string   `json:"raw"`
	Sanitized    map[string]string   `json:"sanitized"`
	Errors       map[string]string   `json:"errors"`
}

func (t *Tools) extractFields(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var docType domain.DocumentType
	if raw := req.GetString("document_type", ""); raw != "" {
		parsed, ok := domain.ParseDocumentType(raw)
		if !ok {
			return mcp.NewToolResultError("unknown document_type " + raw), nil
		}
		docType = parsed
	} else {
		docType = t.classifier.Classify(text)
	}

	extracted := t.extractor.Extract(docType, text)
	result := extractResult{
		DocumentType: docType,
		Raw:          extracted,
		Sanitized:    make(map[string]string, len(extracted)),
		Errors:       map[string]string{},
	}
	for key, value := range extracted {
		clean := fields.Sanitize(key, value)
		result.Sanitized[key] = clean
		if msg := fields.Validate(key, clean); msg != "" {
			result.Errors[key] = msg
		}
	}
	return jsonResult(result)
}

type fieldResult struct {
	Key     string           `json:"key"`
	Kind    domain.FieldKind `json:"kind"`
	Value   string           `json:"value"`
	Valid   *bool            `json:"valid,omitempty"`
	Message string           `json:"message,omitempty"`
}

func (t *Tools) sanitizeField(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, value, err := keyAndValue(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fieldResult{Key: key, Kind: domain.KindOf(key), Value: fields.Sanitize(key, value)})
}

func (t *Tools) validateField(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, value, err := keyAndValue(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fields.Validate(key, value)
	valid := msg == ""
	return jsonResult(fieldResult{Key: key, Kind: domain.KindOf(key), Value: value, Valid: &valid, Message: msg})
}

func (t *Tools) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := t.documents.GetByID(ctx, id)
	if err != nil {
		return t.toolError("get_document", err), nil
	}
	return jsonResult(doc)
}

func (t *Tools) updateField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, value, err := keyAndValue(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := t.editor.UpdateField(ctx, id, key, value)
	if err != nil {
		return t.toolError("update_field", err), nil
	}
	return jsonResult(doc)
}

func keyAndValue(req mcp.CallToolRequest) (string, string, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return "", "", err
	}
	value, err := req.RequireString("value")
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

// toolError reports domain failures to the model as tool errors; only unexpected ones are logged.
func (t *Tools) toolError(tool string, err error) *mcp.CallToolResult {
	if !domain.IsKind(err, domain.ErrInvalidInput) && !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func documentTypeNames() []string {
	names := make([]string, 0, len(domain.DocumentTypes))
	for _, t := range domain.DocumentTypes {
		names = append(names, string(t))
	}
	return names
}
