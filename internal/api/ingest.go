package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.temporal.io/sdk/client"

	"github.com/yourorg/popularity-vision/internal/types"
)

// TaskQueue is shared by the API (starting runs) and the worker
// (executing them).
const TaskQueue = "popularity-vision"

type IngestHandler struct {
	temporalClient client.Client
}

func NewIngestHandler(temporalClient client.Client) *IngestHandler {
	return &IngestHandler{temporalClient: temporalClient}
}

type StartIngestionRequest struct {
	Mode   string `json:"mode"`
	DryRun bool   `json:"dry_run"`
}

type StartIngestionResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// StartIngestion kicks off a Temporal ingestion run.
func (h *IngestHandler) StartIngestion(c *gin.Context) {
	var req StartIngestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Mode {
	case "":
		req.Mode = "full"
	case "full", "test", "deep":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be full, test or deep"})
		return
	}

	params := types.IngestionParams{Mode: req.Mode, DryRun: req.DryRun}
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}

	workflowRun, err := h.temporalClient.ExecuteWorkflow(
		c.Request.Context(),
		options,
		"IngestionWorkflow", // Must match the registered workflow name
		params,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start workflow: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, StartIngestionResponse{
		WorkflowID: workflowRun.GetID(),
		RunID:      workflowRun.GetRunID(),
	})
}

// GetIngestionStatus reports a run's current status, or its summary once
// it completed.
func (h *IngestHandler) GetIngestionStatus(c *gin.Context) {
	workflowID := c.Param("id")
	if workflowID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workflow ID is required"})
		return
	}

	workflowRun := h.temporalClient.GetWorkflow(c.Request.Context(), workflowID, "")

	var result types.RunSummary
	err := workflowRun.Get(c.Request.Context(), &result)
	if err != nil {
		// Workflow is still running or failed
		describe, descErr := h.temporalClient.DescribeWorkflowExecution(
			c.Request.Context(),
			workflowID,
			"",
		)
		if descErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to describe workflow: " + descErr.Error()})
			return
		}

		status := describe.WorkflowExecutionInfo.Status.String()
		c.JSON(http.StatusOK, gin.H{
			"workflow_id": workflowID,
			"status":      status,
			"start_time":  describe.WorkflowExecutionInfo.StartTime,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workflow_id": workflowID,
		"status":      "COMPLETED",
		"result":      result,
	})
}
