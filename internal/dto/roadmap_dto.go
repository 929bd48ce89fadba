package dto

import (
	"time"

	"github.com/noah-isme/skillpath-api/pkg/roadmap"
)

// RoadmapGenerateRequest asks for a roadmap either by career or by a career token.
type RoadmapGenerateRequest struct {
	Career string `json:"career" validate:"omitempty,min=2,max=120"`
	Token  string `json:"token" validate:"omitempty,max=2048"`
}

// RoadmapResponse wraps a generated roadmap for the rendering layer.
type RoadmapResponse struct {
	ID        uint                `json:"id,omitempty"`
	Career    string              `json:"career"`
	Roadmap   roadmap.RoadmapData `json:"roadmap"`
	Model     string              `json:"model,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
	CacheHit  bool                `json:"cache_hit"`
	CreatedAt time.Time           `json:"created_at"`
}

// RoadmapSummary is a history entry without the full roadmap body.
type RoadmapSummary struct {
	ID        uint      `json:"id"`
	Career    string    `json:"career"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoadmapHistoryRequest captures history query params.
type RoadmapHistoryRequest struct {
	Page     int
	PageSize int
	Search   string
}

// RoadmapHistoryResult wraps paginated roadmap history.
type RoadmapHistoryResult struct {
	Items      []RoadmapSummary `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// MindmapResponse carries Mermaid source for a roadmap.
type MindmapResponse struct {
	Career  string `json:"career"`
	Mermaid string `json:"mermaid"`
}
