package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const (
	ProtocolVersion20250326 = "2025-03-26"
	ProtocolVersion20241105 = "2024-11-05"

	LatestProtocolVersion = ProtocolVersion20250326
)

const (
	MethodPing = "ping"

	MethodInitialize = "initialize"

	MethodPromptsList = "prompts/list"
	MethodPromptsGet  = "prompts/get"

	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"

	MethodResourcesList         = "resources/list"
	MethodResourcesRead         = "resources/read"
	MethodResourceTemplatesList = "resources/templates/list"

	MethodNotificationsInitialized = "notifications/initialized"
	MethodNotificationsMessage     = "notifications/message"
	MethodNotificationsCancelled   = "notifications/cancelled"

	MethodLoggingSetLevel = "logging/setLevel"
)

const (
	LevelDebug     LogLevel = -4
	LevelInfo      LogLevel = 0
	LevelNotice    LogLevel = 1
	LevelWarning   LogLevel = 4
	LevelError     LogLevel = 8
	LevelCritical  LogLevel = 9
	LevelAlert     LogLevel = 10
	LevelEmergency LogLevel = 11
)

var AvailableProtocolVersions = map[string]struct{}{
	ProtocolVersion20250326: {},
	ProtocolVersion20241105: {},
}

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// PaginationParams represents pagination parameters.
type PaginationParams struct {
	// Cursor is an opaque token representing the current pagination position.
	// If provided, the server should return results starting after this cursor.
	Cursor string `json:"cursor,omitzero"`
}

// ServerHandlerFunc is an adapter to allow the use of functions as serverHandler implementations.
type ServerHandlerFunc[Req any] func(ctx context.Context, method string, req Req) (any, error)

func (f ServerHandlerFunc[Req]) Handle(ctx context.Context, method string, req Req) (any, error) {
	return f(ctx, method, req)
}

// ErrInvalidArguments is returned by ValidateByJSONSchema when the document does not satisfy the schema.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// compiledSchemas caches schemas by their source text. Tool schemas are fixed at
// generation time, so the cache is bounded by the number of tools.
var compiledSchemas sync.Map // map[string]*gojsonschema.Schema

// ValidateByJSONSchema validates a document against a JSON schema.
func ValidateByJSONSchema(schema string, document any) error {
	s, err := compileSchema(schema)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate by JSON schema: %w", err)
	}
	if !result.Valid() {
		errs := make([]error, len(result.Errors()))
		for i := range result.Errors() {
			errs[i] = errors.New(result.Errors()[i].String())
		}
		return fmt.Errorf("%w: %w", ErrInvalidArguments, errors.Join(errs...))
	}
	return nil
}

func compileSchema(schema string) (*gojsonschema.Schema, error) {
	if v, ok := compiledSchemas.Load(schema); ok {
		return v.(*gojsonschema.Schema), nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema: %w", err)
	}
	v, _ := compiledSchemas.LoadOrStore(schema, s)
	return v.(*gojsonschema.Schema), nil
}

//
// Client-related Types
//

// InitializeRequestParams is sent from the client to the server when it first connects, asking it to begin initialization.
type InitializeRequestParams struct {
	// ProtocolVersion is the latest version of the Model Context Protocol that the client supports.
	// The client MAY decide to support older versions as well.
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// ClientCapabilities is a set of capabilities a client may support.
type ClientCapabilities struct {
	// Experimental contains non-standard capabilities that the client supports.
	Experimental map[string]any `json:"experimental,omitzero"`
	// Roots is present if the client supports listing roots.
	Roots *RootsCapability `json:"roots,omitzero"`
}

// RootsCapability represents the client's capability to support roots features.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitzero"`
}

// CallToolRequestParams is used by the client to invoke a tool provided by the server.
type CallToolRequestParams struct {
	// Name is the name of the tool.
	Name string `json:"name"`
	// Arguments contains the arguments to use for the tool.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// GetPromptRequestParams is used by the client to get a prompt provided by the server.
type GetPromptRequestParams struct {
	// Name is the name of the prompt or prompt template.
	Name string `json:"name"`
	// Arguments contains the arguments to use for templating the prompt.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NotificationsCancelledRequestParams is sent by either side to indicate that it is cancelling a previously-issued request.
type NotificationsCancelledRequestParams struct {
	// RequestID is the ID of the request to cancel.
	// Clients send either a number or a string.
	RequestID json.RawMessage `json:"requestId"`
	// Reason is an optional string describing the reason for the cancellation.
	Reason string `json:"reason"`
}

// LoggingSetLevelRequestParams is a request from the client to the server, to enable or adjust logging.
type LoggingSetLevelRequestParams struct {
	// Level is the level of logging that the client wants to receive from the server.
	// The server should send all logs at this level and higher (i.e., more severe)
	// to the client as notifications/message.
	Level LogLevel `json:"level"`
}

//
// Server-related Types
//

// ServerCapabilities is a set of capabilities defined here, but this is not a closed set:
// any server can define its own, additional capabilities.
type ServerCapabilities struct {
	// Prompts is present if the server offers any prompt templates.
	Prompts *PromptCapability `json:"prompts,omitzero"`
	// Resources is present if the server offers any resources to read.
	Resources *ResourceCapability `json:"resources,omitzero"`
	// Tools is present if the server offers any tools to call.
	Tools *ToolCapability `json:"tools,omitzero"`
	// Experimental contains non-standard capabilities that the server supports.
	Experimental map[string]any `json:"experimental,omitzero"`
	// Logging is present if the server supports sending log messages to the client.
	Logging *LoggingCapability `json:"logging,omitzero"`
}

// InitializeResult is sent from the server after receiving an initialize request from the client.
type InitializeResult struct {
	// ProtocolVersion is the version of the Model Context Protocol that the server wants to use.
	// This may not match the version that the client requested.
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	// Instructions describe how to use the server and its features.
	Instructions string `json:"instructions,omitempty"`
}

// PromptCapability represents server capabilities for prompts.
type PromptCapability struct {
	ListChanged bool `json:"listChanged,omitzero"`
}

// ResourceCapability represents server capabilities for resources.
type ResourceCapability struct {
	// Subscribe indicates whether this server supports subscribing to resource updates.
	Subscribe bool `json:"subscribe,omitzero"`
	// ListChanged indicates whether this server supports notifications for changes to the resource list.
	ListChanged bool `json:"listChanged,omitzero"`
}

// ToolCapability represents server capabilities for tools.
type ToolCapability struct {
	ListChanged bool `json:"listChanged,omitzero"`
}

// LoggingCapability represents server capability for logging.
type LoggingCapability struct{}

//
// Feature-specific Types
//

// Logging Types

// LogLevel is the severity of a log message.
// These map to syslog message severities, as specified in RFC-5424.
type LogLevel int

// UnmarshalJSON implements json.Unmarshaler for LogLevel.
func (l *LogLevel) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"debug"`:
		*l = LevelDebug
	case `"info"`:
		*l = LevelInfo
	case `"notice"`:
		*l = LevelNotice
	case `"warning"`:
		*l = LevelWarning
	case `"error"`:
		*l = LevelError
	case `"critical"`:
		*l = LevelCritical
	case `"alert"`:
		*l = LevelAlert
	case `"emergency"`:
		*l = LevelEmergency
	default:
		return fmt.Errorf("invalid log level: %s", string(b))
	}
	return nil
}

// Tool Types

// Tool represents a definition for a tool the client can call.
type Tool struct {
	// Name is the name of the tool.
	Name string `json:"name"`
	// Description is a human-readable description of the tool.
	Description string `json:"description,omitzero"`
	// InputSchema is a JSON Schema object defining the expected parameters for the tool.
	InputSchema any `json:"inputSchema"`

	// Annotations contains optional additional tool information.
	Annotations *ToolAnnotations `json:"annotations,omitzero"`
}

// ToolAnnotations represents additional properties describing a Tool to clients.
// NOTE: all properties in ToolAnnotations are **hints**.
type ToolAnnotations struct {
	// Title is a human-readable title for the tool.
	Title string `json:"title,omitzero"`
	// ReadOnlyHint indicates if the tool does not modify its environment.
	ReadOnlyHint bool `json:"readOnlyHint,omitzero"`
	// DestructiveHint indicates if the tool may perform destructive updates to its environment.
	// Meaningful only when ReadOnlyHint is false.
	DestructiveHint bool `json:"destructiveHint,omitzero"`
	// IdempotentHint indicates if calling the tool repeatedly with the same arguments
	// will have no additional effect on its environment.
	IdempotentHint bool `json:"idempotentHint,omitzero"`
	// OpenWorldHint indicates if this tool may interact with an "open world" of external
	// entities, e.g. a third-party HTTP API.
	OpenWorldHint bool `json:"openWorldHint,omitzero"`
}

// Prompt Types

// Prompt is a prompt or prompt template that the server offers.
type Prompt struct {
	// Name is the name of the prompt or prompt template.
	Name string `json:"name"`
	// Description is an optional description of what this prompt provides
	Description string `json:"description,omitzero"`
	// Arguments is a list of arguments to use for templating the prompt.
	Arguments []PromptArgument `json:"arguments,omitzero"`
}

// PromptArgument describes an argument that a prompt can accept.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitzero"`
	Required    bool   `json:"required,omitzero"`
}
