/**
 * Asynq task definitions shared by the enqueuer and the consumer
 */

package queue

import (
	"github.com/chatperf/kpi-ocr/internal/models"
)

// TaskExtractKPI is the task type for one screenshot extraction job.
const TaskExtractKPI = "kpi:extract"

// QueueName is the dedicated queue the worker consumes from.
const QueueName = "kpi:jobs"

// ExtractJob is the payload of a TaskExtractKPI task. Image travels
// base64-encoded inside the JSON payload.
type ExtractJob struct {
	JobID  string        `json:"jobId"`
	Date   models.Date   `json:"date"`
	Moment models.Moment `json:"moment"`
	Note   string        `json:"note,omitempty"`
	Image  []byte        `json:"image"`
}
