package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jwtly10/shadertpl"
	iLsp "github.com/jwtly10/shadertpl/internal/lsp"
	"github.com/jwtly10/shadertpl/internal/transformer"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

type Server struct {
	conn *jsonrpc2.Conn
	// tracks canceled request IDs
	cancelMap sync.Map

	// tracking for method request counts
	trackRequestCount sync.Map

	// abstraction for compiling operations
	docService *iLsp.DocumentService

	// called on exit, os.Exit outside of tests
	exit func(code int)
	shutdown bool
}

type Options struct {
	// Root directory for shadow files, a temp directory when empty
	ShadowRoot string
	// Generate the final shader when a template is saved
	CompileOnSave bool
	// Where #MODULES are loaded from
	Modules shadertpl.ModuleRegistry
	// Code injected at the injection points of templates
	Injections shadertpl.InjectionSource
	// Features and keywords templates are checked with
	Config *shadertpl.Config
	// Where shaders compiled on save are written, next to the template when empty
	OutputDir string
}

func (o Options) Validate() error {
	if o.ShadowRoot == "" {
		return nil
	}
	info, err := os.Stat(o.ShadowRoot)
	if err != nil {
		return fmt.Errorf("invalid shadow root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid shadow root: %s is not a directory", o.ShadowRoot)
	}
	return nil
}

// OverrideDocOpts applies the server options over the document service defaults
func (o Options) OverrideDocOpts(docOpts *iLsp.DocumentServiceOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.ShadowRoot != "" {
		docOpts.ShadowRoot = o.ShadowRoot
	}
	docOpts.CompileOnSave = o.CompileOnSave

	for _, opts := range []*transformer.TransformOptions{&docOpts.ShadowTransformerOpts, &docOpts.FinalTransformerOpts} {
		opts.Modules = o.Modules
		opts.Injections = o.Injections
		opts.Config = o.Config
	}
	docOpts.FinalTransformerOpts.OutputDir = o.OutputDir
	return nil
}

func NewServer(options Options) (*Server, error) {
	docOpts := iLsp.DefaultDocumentServiceOptions
	if err := options.OverrideDocOpts(&docOpts); err != nil {
		return nil, err
	}

	dService, err := iLsp.NewDocumentService(docOpts)
	if err != nil {
		return nil, err
	}

	return &Server{
		docService: dService,
		exit:       os.Exit,
	}, nil
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	if s.conn == nil {
		s.conn = conn
	}
	slog.Debug("received request", "method", req.Method, "id", req.ID)
	reqCount, _ := s.trackRequestCount.LoadOrStore(req.Method, 0)
	if count, ok := reqCount.(int); ok {
		s.trackRequestCount.Store(req.Method, count+1)
	}

	if _, ok := s.cancelMap.Load(req.ID.String()); ok {
		slog.Debug("request was canceled", "id", req.ID)
		s.cancelMap.Delete(req.ID.String())
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Options: &lsp.TextDocumentSyncOptions{
						OpenClose: true,
						Change:    lsp.TDSKFull,
						Save:      &lsp.SaveOptions{IncludeText: true},
					},
				},
				HoverProvider: true,
				CompletionProvider: &lsp.CompletionOptions{
					TriggerCharacters: []string{":"},
				},
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")
		s.shutdown = true

		if err := s.docService.CleanupShadowFiles(); err != nil {
			slog.Error("failed to remove shadow workspace", "error", err)
		}

		s.printDebugStats()

		return nil, nil
	case "exit":
		slog.Info("exiting")

		if s.shutdown {
			s.exit(0)
		} else {
			s.exit(1)
		}
		return nil, nil

	// Biz logic
	case "textDocument/didOpen":
		// The file is compiled on open, so diagnostics are shown initially
		var params lsp.DidOpenTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		return nil, s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		// Full sync, the last change holds the whole text
		if n := len(params.ContentChanges); n > 0 {
			return nil, s.update(ctx, params.TextDocument.URI, params.ContentChanges[n-1].Text)
		}
		return nil, nil

	case "textDocument/didSave":
		var params didSaveParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		text := params.Text
		if text == "" {
			_, lines, ok := s.docService.Document(params.TextDocument.URI)
			if !ok {
				return nil, nil
			}
			text = strings.Join(lines, "\n")
		}

		if err := s.update(ctx, params.TextDocument.URI, text); err != nil {
			return nil, err
		}
		out, err := s.docService.Save(params.TextDocument.URI, text)
		if err != nil {
			slog.Warn("failed to compile saved template", "uri", params.TextDocument.URI, "error", err)
			return nil, nil
		}
		if out != "" {
			slog.Info("compiled template", "uri", params.TextDocument.URI, "output", out)
		}
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		s.docService.Close(params.TextDocument.URI)
		// clear the diagnostics of the closed file
		return nil, s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []lsp.Diagnostic{},
		})

	case "textDocument/hover":
		var params lsp.TextDocumentPositionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		doc, lines, ok := s.docService.Document(params.TextDocument.URI)
		if !ok {
			return nil, fmt.Errorf("document not open: %s", params.TextDocument.URI)
		}
		if h := iLsp.Hover(doc, lines, params.Position); h != nil {
			return h, nil
		}
		return nil, nil

	case "textDocument/completion":
		var params lsp.CompletionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		doc, lines, ok := s.docService.Document(params.TextDocument.URI)
		if !ok {
			return nil, fmt.Errorf("document not open: %s", params.TextDocument.URI)
		}
		if list := iLsp.Complete(doc, lines, params.Position); list != nil {
			return list, nil
		}
		return lsp.CompletionList{Items: []lsp.CompletionItem{}}, nil

	case "$/cancelRequest":
		var params lsp.CancelParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		slog.Debug("canceling request", "id", params.ID)
		s.cancelMap.Store(params.ID.String(), struct{}{})
		return nil, nil

	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", req.Method)}
	}
}

// update compiles the new text of a template and publishes its diagnostics
func (s *Server) update(ctx context.Context, uri lsp.DocumentURI, text string) error {
	u, err := s.docService.Update(uri, text)
	if err != nil {
		return err
	}

	_, lines, _ := s.docService.Document(uri)
	return s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: iLsp.ToLSPDiagnostics(u.Diagnostics, lines),
	})
}

func (s *Server) SendDiagnostics(ctx context.Context, params lsp.PublishDiagnosticsParams) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Notify(ctx, "textDocument/publishDiagnostics", params)
}

func (s *Server) printDebugStats() {
	s.trackRequestCount.Range(func(key, value interface{}) bool {
		msg := fmt.Sprintf("Method: %-30s Count: %d", key.(string), value.(int))
		slog.Debug(msg)
		return true
	})
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	return json.Unmarshal(*req.Params, v)
}

// didSaveParams adds the text sent when the save option includeText is set
type didSaveParams struct {
	TextDocument lsp.TextDocumentIdentifier `json:"textDocument"`
	Text         string                     `json:"text,omitempty"`
}
