// ABOUTME: MCP resource implementations for soreness tracking.
// ABOUTME: Provides liftlog://soreness, liftlog://catalog, and liftlog://export resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/liftlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	sorenessURI = "liftlog://soreness"
	catalogURI  = "liftlog://catalog"
	exportURI   = "liftlog://export"
)

func (s *Server) registerResources() {
	// liftlog://soreness - current per-muscle and per-group readings
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         sorenessURI,
		Name:        "Current Soreness",
		Description: "Normalized soreness for every muscle and muscle group",
		MIMEType:    "application/json",
	}, s.handleSorenessResource)

	// liftlog://catalog - groups, ratio tables, and exercise mappings
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         catalogURI,
		Name:        "Intensity Catalog",
		Description: "Muscle groups with their ratio tables and the muscles each exercise trains",
		MIMEType:    "application/json",
	}, s.handleCatalogResource)

	// liftlog://export - everything stored for the user
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         exportURI,
		Name:        "Soreness Export",
		Description: "Full JSON export of sets, soreness, baselines, and history",
		MIMEType:    "application/json",
	}, s.handleExportResource)
}

// Resource handlers

func (s *Server) handleSorenessResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	muscles, err := s.svc.GetMuscleSoreness(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read muscle soreness: %w", err)
	}
	groups, err := s.svc.GetMuscleGroupSoreness(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read group soreness: %w", err)
	}

	result := map[string]interface{}{
		"user_id":  s.userID,
		"strategy": s.svc.Strategy(),
		"as_of":    time.Now().UTC().Format(time.RFC3339),
		"muscles":  muscles,
		"groups":   groups,
	}
	return jsonResource(sorenessURI, result)
}

type catalogGroup struct {
	Group   string             `json:"group"`
	Muscles []string           `json:"muscles"`
	Ratios  map[string]float64 `json:"ratios,omitempty"`
}

func (s *Server) handleCatalogResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	cat := s.svc.Catalog()

	groups := make([]catalogGroup, 0)
	for _, g := range cat.Groups() {
		ratios, _ := cat.GroupRatios(g)
		groups = append(groups, catalogGroup{Group: g, Muscles: cat.MusclesIn(g), Ratios: ratios})
	}

	exercises := make(map[string]interface{})
	for _, id := range cat.Exercises() {
		exercises[id] = cat.ExerciseMuscles(id)
	}

	result := map[string]interface{}{
		"groups":    groups,
		"exercises": exercises,
	}
	return jsonResource(catalogURI, result)
}

func (s *Server) handleExportResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := storage.ExportJSON(ctx, s.store, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to export: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      exportURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
