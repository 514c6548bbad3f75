package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkoval/faqforge/internal/catalog"
	"github.com/mkoval/faqforge/internal/dataset"
	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/export"
	"github.com/mkoval/faqforge/internal/faq"
	"github.com/mkoval/faqforge/internal/pipeline"
	"github.com/mkoval/faqforge/internal/registry"
	"github.com/mkoval/faqforge/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Registry  *registry.Registry
	Catalog   *catalog.Catalog
	Builder   *dataset.Builder
	Exporter  *export.Exporter
	TrainOpts engine.TrainOptions
}

// NewMCPServer creates an MCP server with the chatbot builder's tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"faqforge",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("faqforge fine-tunes small FAQ chatbots for businesses and lets you chat with them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_industries",
			mcp.WithDescription("List the industries that ship with built-in FAQ samples."),
		),
		mcpListIndustries(deps),
	)

	s.AddTool(
		mcp.NewTool("parse_faqs",
			mcp.WithDescription("Parse raw FAQ text (lines of 'Q: ... A: ...') into question/answer pairs."),
			mcp.WithString("text", mcp.Description("Raw FAQ text"), mcp.Required()),
		),
		mcpParseFAQs(),
	)

	s.AddTool(
		mcp.NewTool("train_chatbot",
			mcp.WithDescription("Create a chatbot and fine-tune it on FAQ text. Returns the chatbot id, training loss and checkpoint path."),
			mcp.WithString("name", mcp.Description("Business name"), mcp.Required()),
			mcp.WithString("industry", mcp.Description("Business industry; see list_industries"), mcp.Required()),
			mcp.WithString("faq_text", mcp.Description("Raw FAQ text in 'Q: ... A: ...' format")),
		),
		mcpTrainChatbot(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_chatbot",
			mcp.WithDescription("Ask a trained chatbot a question."),
			mcp.WithString("chatbot_id", mcp.Description("Chatbot id returned by train_chatbot"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The customer question"), mcp.Required()),
		),
		mcpAskChatbot(deps),
	)

	s.AddTool(
		mcp.NewTool("export_chatbot",
			mcp.WithDescription("Export a trained chatbot's business data as JSON."),
			mcp.WithString("chatbot_id", mcp.Description("Chatbot id"), mcp.Required()),
			mcp.WithString("dest", mcp.Description("Destination file path; defaults to the data directory")),
		),
		mcpExportChatbot(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"faqforge://catalog",
			"Industry Catalog",
			mcp.WithResourceDescription("The built-in industry FAQ samples as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpListIndustries(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type industryInfo struct {
			Name  string `json:"name"`
			Pairs int    `json:"pairs"`
		}
		industries := deps.Catalog.Industries()
		out := make([]industryInfo, len(industries))
		for i, ind := range industries {
			out[i] = industryInfo{Name: ind.Name, Pairs: len(ind.Pairs)}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpParseFAQs() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		pairs := faq.Parse(text)
		if pairs == nil {
			pairs = []faq.Pair{}
		}

		b, err := json.Marshal(map[string]any{
			"count": len(pairs),
			"pairs": pairs,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTrainChatbot(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		industry, err := req.RequireString("industry")
		if err != nil {
			return mcpError("industry is required"), nil
		}
		faqText := req.GetString("faq_text", "")

		bot := deps.Registry.Create(name, industry)
		model, err := deps.Registry.Session(bot.ID)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}

		trainer := pipeline.NewTrainer(model, deps.Builder, deps.Exporter, deps.TrainOpts)
		res, err := trainer.Run(ctx, pipeline.Request{
			Name:      name,
			Industry:  industry,
			FAQText:   faqText,
			OutputDir: model.OutputDir(),
		}, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}

		if _, err := deps.Registry.RecordTraining(bot.ID, registry.TrainingRecord{
			Loss:           res.Loss,
			CheckpointPath: res.CheckpointPath,
			ExportPath:     res.ExportPath,
			Examples:       res.Examples,
			Pairs:          res.Pairs,
		}); err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"chatbot_id":      bot.ID,
			"status":          res.Status,
			"loss":            res.Loss,
			"checkpoint_path": res.CheckpointPath,
			"export_path":     res.ExportPath,
			"examples":        res.Examples,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskChatbot(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("chatbot_id")
		if err != nil {
			return mcpError("chatbot_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		bot, err := deps.Registry.Get(id)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		model, err := deps.Registry.Session(id)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}

		// One throwaway conversation per call; MCP callers carry their own
		// context, so history is discarded.
		answer, err := session.NewChat(model).Ask(ctx, question, bot.CheckpointPath)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(answer), nil
	}
}

func mcpExportChatbot(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("chatbot_id")
		if err != nil {
			return mcpError("chatbot_id is required"), nil
		}
		dest := req.GetString("dest", "")

		bot, err := deps.Registry.Get(id)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		if bot.TrainedAt.IsZero() {
			return mcpError("chatbot has not been trained yet"), nil
		}

		path, err := deps.Exporter.Export(export.Business{Name: bot.Name, Industry: bot.Industry}, bot.Pairs, dest)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Exported to %s", path)), nil
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Catalog.Industries())
		if err != nil {
			return nil, fmt.Errorf("marshalling catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
