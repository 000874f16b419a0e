package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ktr0731/mcp-server-weather/protocol"
)

// ListResourcesResult represents the response for resources list.
// ListResourcesResult is a PaginatedResult that contains a list of resources the server offers.
type ListResourcesResult struct {
	// NextCursor is an opaque token representing the current pagination position.
	// If provided, the server should return results starting after this cursor.
	NextCursor string `json:"nextCursor,omitzero"`
	// Resources is a list of resources the server offers.
	Resources []Resource `json:"resources"`
}

// listResourceTemplatesResult is the server's response to a resources/templates/list request from the client.
type listResourceTemplatesResult struct {
	NextCursor        string             `json:"nextCursor,omitzero"`
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ServerResourceHandler is the interface for a server that can handle resource-related requests.
type ServerResourceHandler interface {
	// HandleResourcesList handles a resources/list request.
	HandleResourcesList(ctx context.Context) (*ListResourcesResult, error)
	// HandleResourcesRead handles a resources/read request.
	HandleResourcesRead(ctx context.Context, req *ReadResourceRequest) (*ReadResourceResult, error)
}

// ReadResourceRequest is sent from the client to the server, to read a specific resource URI.
type ReadResourceRequest struct {
	// URI is the URI of the resource to read. The URI can use any protocol; it is up to the server how to interpret it.
	URI string `json:"uri"`
}

// ReadResourceResult is the server's response to a resources/read request from the client.
type ReadResourceResult struct {
	// Contents is a list of contents of the resource.
	Contents []ResourceContent `json:"contents"`
}

// Resource is a known resource that the server is capable of reading.
type Resource struct {
	// URI is the URI of this resource.
	URI string `json:"uri"`
	// Name is a human-readable name for this resource.
	Name string `json:"name"`
	// Description is a description of what this resource represents.
	Description string `json:"description,omitzero"`
	// MimeType is the MIME type of this resource, if known.
	MimeType string `json:"mimeType,omitzero"`

	// Annotations are optional annotations for the client.
	Annotations *Annotations `json:"annotations,omitzero"`
}

// ResourceTemplate is a template description for resources available on the server.
type ResourceTemplate struct {
	// URITemplate is a URI template (according to RFC 6570) that can be used to construct resource URIs.
	URITemplate string `json:"uriTemplate"`
	// Name is a human-readable name for the type of resource this template refers to.
	Name string `json:"name"`
	// Description is a description of what this template is for.
	Description string `json:"description,omitzero"`
	// MimeType is the MIME type for all resources that match this template.
	MimeType string `json:"mimeType,omitzero"`

	// Annotations are optional annotations for the client.
	Annotations *Annotations `json:"annotations,omitzero"`
}

// ResourceContent is the interface for contents of a specific resource or sub-resource.
type ResourceContent interface {
	isResourceContent()
}

// TextResourceContent represents textual resource content.
type TextResourceContent struct {
	// URI is the URI of this resource.
	URI string
	// MimeType is the MIME type of this resource, if known.
	MimeType string
	// Text is the text of the item.
	Text string
}

func (t TextResourceContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		URI      string `json:"uri"`
		MimeType string `json:"mimeType,omitzero"`
		Text     string `json:"text"`
	}{
		URI:      t.URI,
		MimeType: t.MimeType,
		Text:     t.Text,
	})
}

func (t TextResourceContent) isResourceContent() {}

// listPromptsResult is the server's response to a prompts/list request from the client.
type listPromptsResult struct {
	NextCursor string            `json:"nextCursor,omitzero"`
	Prompts    []protocol.Prompt `json:"prompts"`
}

// GetPromptResult represents the server's response to a prompts/get request from the client.
type GetPromptResult struct {
	// Description is an optional description for the prompt.
	Description string `json:"description,omitzero"`
	// Messages is the list of messages the prompt expands to.
	Messages []PromptMessage `json:"messages"`
}

// Role represents the sender or recipient of messages and data in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptMessage describes a message returned as part of a prompt.
type PromptMessage struct {
	// Role represents the role of the message sender/recipient.
	Role Role `json:"role"`
	// Content represents the content of the message.
	Content PromptMessageContent `json:"content"`
}

// TextContent represents text data.
type TextContent struct {
	// Text is the text content of the message.
	Text string `json:"text"`

	// Annotations are optional annotations for the client.
	Annotations *Annotations `json:"annotations,omitzero"`
}

func (t TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string       `json:"type"`
		Text        string       `json:"text"`
		Annotations *Annotations `json:"annotations,omitzero"`
	}{
		Type:        "text",
		Text:        t.Text,
		Annotations: t.Annotations,
	})
}

func (t TextContent) isCallToolContent()      {}
func (t TextContent) isPromptMessageContent() {}

// listToolsResult represents the server's response to a tools/list request from the client.
type listToolsResult struct {
	NextCursor string          `json:"nextCursor,omitzero"`
	Tools      []protocol.Tool `json:"tools"`
}

// CallToolContent is the interface for content that can be returned by a tool call.
type CallToolContent interface {
	isCallToolContent()
}

// PromptMessageContent is the interface for content that can be included in a prompt message.
type PromptMessageContent interface {
	isPromptMessageContent()
}

// CallToolResult represents the server's response to a tool call.
// Any errors that originate from the tool SHOULD be reported inside the result
// object, with IsError set to true, NOT as an MCP protocol-level error
// response. Otherwise, the LLM would not be able to see that an error occurred
// and self-correct.
type CallToolResult struct {
	// Content is the content of the tool call.
	Content []CallToolContent `json:"content"`
	// IsError indicates whether the tool call ended in an error.
	IsError bool `json:"isError,omitzero"`
}

// NewJSONToolResult returns a result holding v as indented JSON text.
func NewJSONToolResult(v any) (*CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &CallToolResult{
		Content: []CallToolContent{TextContent{Text: string(b)}},
	}, nil
}

// NewToolErrorResult returns a result reporting err to the model.
func NewToolErrorResult(err error) *CallToolResult {
	return &CallToolResult{
		Content: []CallToolContent{TextContent{Text: err.Error()}},
		IsError: true,
	}
}

// Annotations are used by the client to inform how objects are used or displayed.
type Annotations struct {
	// Audience describes who the intended customer of this object or data is.
	Audience []Role `json:"audience,omitzero"`
	// Priority describes how important this data is for operating the server.
	// 1 means effectively required, 0 means entirely optional.
	Priority *float64 `json:"priority,omitzero"`
}
