package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/lifetale/internal/export"
	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/story"
)

// NewMCPServer creates an MCP server exposing the story engine tools.
// It shares the Service's session registry, so a story started over HTTP
// can be continued over MCP and vice versa.
func NewMCPServer(h *Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lifetale",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("lifetale generates an eighteen-stage life story for a character profile, one batch of stages at a time."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_story",
			mcp.WithDescription("Start a new life story. Pass a profile as JSON, or omit it to use the saved default profile. Returns the story after its first batch of stages."),
			mcp.WithString("profile", mcp.Description("Profile JSON: {name, gender, intelligence, wealth, appearance, health, description}")),
		),
		mcpGenerateStory(h),
	)

	s.AddTool(
		mcp.NewTool("continue_story",
			mcp.WithDescription("Generate the next batch of stages for an in-progress story."),
			mcp.WithString("story_id", mcp.Description("Story ID returned by generate_story"), mcp.Required()),
		),
		mcpContinueStory(h),
	)

	s.AddTool(
		mcp.NewTool("fill_stage",
			mcp.WithDescription("Generate a single stage at the given age for a stored story, replacing any existing stage at that age."),
			mcp.WithString("story_id", mcp.Description("Story ID"), mcp.Required()),
			mcp.WithNumber("age", mcp.Description("Target age for the stage"), mcp.Required()),
		),
		mcpFillStage(h),
	)

	s.AddTool(
		mcp.NewTool("regenerate_stage",
			mcp.WithDescription("Rewrite the stage at the given age with a fresh take, keeping the rest of the story."),
			mcp.WithString("story_id", mcp.Description("Story ID"), mcp.Required()),
			mcp.WithNumber("age", mcp.Description("Age of the stage to rewrite"), mcp.Required()),
		),
		mcpRegenerateStage(h),
	)

	s.AddTool(
		mcp.NewTool("story_report",
			mcp.WithDescription("Check a stored story for missing ages, large age gaps, and thin stages."),
			mcp.WithString("story_id", mcp.Description("Story ID"), mcp.Required()),
		),
		mcpStoryReport(h),
	)

	s.AddTool(
		mcp.NewTool("story_stats",
			mcp.WithDescription("Summary statistics for a stored story: stage count, age range, mean content length, completion percentage."),
			mcp.WithString("story_id", mcp.Description("Story ID"), mcp.Required()),
		),
		mcpStoryStats(h),
	)

	s.AddTool(
		mcp.NewTool("export_story",
			mcp.WithDescription("Render a stored story as a Markdown document."),
			mcp.WithString("story_id", mcp.Description("Story ID"), mcp.Required()),
		),
		mcpExportStory(h),
	)

	s.AddResource(
		mcp.NewResource(
			"lifetale://profile",
			"Default Profile",
			mcp.WithResourceDescription("Saved default character profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(h),
	)

	return s
}

func mcpGenerateStory(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var p profile.Profile
		if raw := req.GetString("profile", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				return mcpError(fmt.Sprintf("invalid profile JSON: %v", err)), nil
			}
		} else {
			saved, ok, err := h.deps.Profiles.Get()
			if err != nil {
				return mcpError(fmt.Sprintf("loading default profile: %v", err)), nil
			}
			if !ok {
				return mcpError("no profile given and no default profile saved"), nil
			}
			p = saved
		}
		if errs := p.Validate(); len(errs) > 0 {
			b, _ := json.Marshal(errs)
			return mcpError(fmt.Sprintf("profile is invalid: %s", b)), nil
		}

		id := uuid.New().String()
		h.mu.Lock()
		h.sessions[id] = &sessionEntry{session: h.deps.Generator.NewSession(p)}
		h.mu.Unlock()

		snap, err := h.advance(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("generating first batch: %v", err)), nil
		}
		return mcpJSON(snap)
	}
}

func mcpContinueStory(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("story_id")
		if err != nil {
			return mcpError("story_id is required"), nil
		}

		snap, err := h.advance(ctx, id)
		if err != nil {
			if errors.Is(err, errNoSession) {
				return mcpError(fmt.Sprintf("story %s has no active session; it is finished or never started", id)), nil
			}
			return mcpError(fmt.Sprintf("generating next batch: %v", err)), nil
		}
		return mcpJSON(snap)
	}
}

func mcpFillStage(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, age, res := mcpLoadStoryAge(h, req)
		if res != nil {
			return res, nil
		}

		stage, err := h.deps.Generator.GenerateSingleStage(ctx, st.Profile, age, st.Stages)
		countStageOp("fill", err)
		if err != nil {
			return mcpError(fmt.Sprintf("generating stage: %v", err)), nil
		}

		substituteStage(&st, age, stage)
		if err := h.saveStory(&st); err != nil {
			return mcpError(fmt.Sprintf("saving story: %v", err)), nil
		}
		return mcpJSON(stage)
	}
}

func mcpRegenerateStage(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, age, res := mcpLoadStoryAge(h, req)
		if res != nil {
			return res, nil
		}

		stage, err := h.deps.Generator.RegenerateStage(ctx, st.Profile, age, st.Stages)
		countStageOp("regenerate", err)
		if err != nil {
			return mcpError(fmt.Sprintf("regenerating stage: %v", err)), nil
		}

		substituteStage(&st, age, stage)
		if err := h.saveStory(&st); err != nil {
			return mcpError(fmt.Sprintf("saving story: %v", err)), nil
		}
		return mcpJSON(stage)
	}
}

func mcpStoryReport(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, res := mcpLoadStory(h, req)
		if res != nil {
			return res, nil
		}
		return mcpJSON(story.Validate(st))
	}
}

func mcpStoryStats(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, res := mcpLoadStory(h, req)
		if res != nil {
			return res, nil
		}
		stats, err := story.Summarize(st)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(stats)
	}
}

func mcpExportStory(h *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, res := mcpLoadStory(h, req)
		if res != nil {
			return res, nil
		}
		return mcpText(export.Markdown(st)), nil
	}
}

func mcpResourceProfile(h *Service) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, ok, err := h.deps.Profiles.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		if !ok {
			return nil, errors.New("no default profile saved")
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
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

func mcpLoadStory(h *Service, req mcp.CallToolRequest) (story.Story, *mcp.CallToolResult) {
	id, err := req.RequireString("story_id")
	if err != nil {
		return story.Story{}, mcpError("story_id is required")
	}
	st, err := h.deps.Store.GetStory(id)
	if err != nil {
		return story.Story{}, mcpError(fmt.Sprintf("loading story %s: %v", id, err))
	}
	return st, nil
}

func mcpLoadStoryAge(h *Service, req mcp.CallToolRequest) (story.Story, int, *mcp.CallToolResult) {
	st, res := mcpLoadStory(h, req)
	if res != nil {
		return story.Story{}, 0, res
	}
	age := req.GetInt("age", -1)
	if age < 0 {
		return story.Story{}, 0, mcpError("age is required and must be non-negative")
	}
	return st, age, nil
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
