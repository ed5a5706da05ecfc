package models

import (
	"time"
)

// Workflow is a popularity snapshot for one workflow name as seen on one
// platform for one country. The (workflow_name, platform, country) triple
// is the natural key; re-ingesting the same triple updates the row in
// place rather than creating a new one.
type Workflow struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	WorkflowName      string         `json:"workflow_name" gorm:"size:512;not null;uniqueIndex:idx_workflow_identity"`
	Platform          string         `json:"platform" gorm:"size:64;not null;uniqueIndex:idx_workflow_identity"`
	Country           string         `json:"country" gorm:"size:64;not null;default:Global;uniqueIndex:idx_workflow_identity"`
	PopularityMetrics map[string]any `json:"popularity_metrics" gorm:"serializer:json;type:jsonb;not null"`
	SourceURL         *string        `json:"source_url,omitempty"`
	LastUpdated       time.Time      `json:"last_updated" gorm:"autoUpdateTime"`
}

func (Workflow) TableName() string { return "workflows" }
