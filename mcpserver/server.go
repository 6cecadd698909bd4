// Package mcpserver exposes sustainability scoring to MCP clients.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to clients during initialisation
var Version = "dev"

// toolHandler holds the services the tools call into
type toolHandler struct {
	taxonomy *services.TaxonomyService
	projects *services.ProjectService
}

// NewMCPServer registers the scoring tools without starting a transport.
// projects may be nil, in which case preview_reference reports an error.
func NewMCPServer(taxonomy *services.TaxonomyService, projects *services.ProjectService) *server.MCPServer {
	s := server.NewMCPServer(
		"Sustainability Scoring Server",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	h := &toolHandler{taxonomy: taxonomy, projects: projects}

	s.AddTool(mcp.NewTool("compute_score",
		mcp.WithDescription("Score checklist responses and summary values against the sustainability taxonomy."),
		mcp.WithObject("responses", mcp.Description("Map of checklist item id to yes, no or n/a.")),
		mcp.WithObject("summary_values", mcp.Description("Map of category id to sub-category id to a score between 0 and 100.")),
		mcp.WithNumber("taxonomy_version", mcp.Description("Taxonomy version to score against. Defaults to the current version.")),
	), h.handleComputeScore)

	s.AddTool(mcp.NewTool("check_completeness",
		mcp.WithDescription("Check whether a category's mandatory items are answered before moving on."),
		mcp.WithString("category_id", mcp.Description("The category to check."), mcp.Required()),
		mcp.WithObject("responses", mcp.Description("Map of checklist item id to yes, no or n/a.")),
		mcp.WithNumber("taxonomy_version", mcp.Description("Taxonomy version to check against.")),
	), h.handleCheckCompleteness)

	s.AddTool(mcp.NewTool("preview_reference",
		mcp.WithDescription("Show the reference a new assessment would receive, or why the stage is not allowed."),
		mcp.WithString("project_number", mcp.Description("The project number, e.g. P100."), mcp.Required()),
		mcp.WithString("stage", mcp.Description("Project stage."), mcp.Required(), mcp.Enum("Tender", "Active", "Complete")),
	), h.handlePreviewReference)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects
func ServeStdio(taxonomy *services.TaxonomyService, projects *services.ProjectService) error {
	return server.ServeStdio(NewMCPServer(taxonomy, projects))
}

func (h *toolHandler) handleComputeScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tax, err := h.taxonomy.Version(ctx, request.GetInt("taxonomy_version", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown taxonomy: %v", err)), nil
	}
	responses, err := responsesArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if errs := services.ValidateResponses(tax, responses); len(errs) > 0 {
		return mcp.NewToolResultError(errs.Error()), nil
	}
	manual, err := summaryArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if errs := services.ValidateScores(tax, manual); len(errs) > 0 {
		return mcp.NewToolResultError(errs.Error()), nil
	}

	res := scoring.ComputeScore(tax, scoring.Input{
		Responses:  responses,
		Priorities: scoring.EffectivePriorities(tax, nil, false),
		Manual:     manual,
	})
	return jsonResult(res)
}

func (h *toolHandler) handleCheckCompleteness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categoryID := request.GetString("category_id", "")
	if categoryID == "" {
		return mcp.NewToolResultError("category_id is required"), nil
	}
	tax, err := h.taxonomy.Version(ctx, request.GetInt("taxonomy_version", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown taxonomy: %v", err)), nil
	}
	responses, err := responsesArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if errs := services.ValidateResponses(tax, responses); len(errs) > 0 {
		return mcp.NewToolResultError(errs.Error()), nil
	}

	g, err := scoring.CheckCompleteness(tax, categoryID, responses, scoring.EffectivePriorities(tax, nil, false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{
		"category_id":       g.CategoryID,
		"passed":            g.Passed,
		"missing_mandatory": g.MissingMandatory,
		"average_score":     g.AverageScore,
		"below_threshold":   g.BelowThreshold,
		"warnings":          g.Warnings(),
	})
}

func (h *toolHandler) handlePreviewReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.projects == nil {
		return mcp.NewToolResultError("project records are not available"), nil
	}
	number := strings.TrimSpace(request.GetString("project_number", ""))
	if number == "" {
		return mcp.NewToolResultError("project_number is required"), nil
	}
	stage, err := models.ParseProjectStage(request.GetString("stage", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ref, verr, err := h.projects.PreviewReference(ctx, number, stage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("preview failed: %v", err)), nil
	}
	if verr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", verr.Code, verr.Message)), nil
	}
	return mcp.NewToolResultText(ref), nil
}

// responsesArg reads the responses object; JSON strings only
func responsesArg(request mcp.CallToolRequest) (scoring.Responses, error) {
	out := scoring.Responses{}
	raw, ok := request.GetArguments()["responses"].(map[string]any)
	if !ok {
		return out, nil
	}
	var bad []string
	for itemID, v := range raw {
		s, ok := v.(string)
		if !ok {
			bad = append(bad, itemID)
			continue
		}
		r, err := scoring.ParseResponse(s)
		if err != nil {
			bad = append(bad, itemID)
			continue
		}
		out[itemID] = r
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("invalid responses for %s", strings.Join(bad, ", "))
	}
	return out, nil
}

// summaryArg reads the nested summary_values object. JSON numbers arrive as float64.
func summaryArg(request mcp.CallToolRequest) (scoring.SubCategoryValues, error) {
	out := scoring.SubCategoryValues{}
	raw, ok := request.GetArguments()["summary_values"].(map[string]any)
	if !ok {
		return out, nil
	}
	for catID, subs := range raw {
		m, ok := subs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("summary_values.%s must be an object", catID)
		}
		for subID, v := range m {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("summary_values.%s.%s must be a number", catID, subID)
			}
			out.Set(catID, subID, f)
		}
	}
	return out, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
