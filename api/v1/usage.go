package v1

type ListUsageRecordsRequest struct {
	StartDate string `form:"start_date"` // RFC 3339, optional
	EndDate   string `form:"end_date"`   // RFC 3339, optional
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

type UsageRecordItem struct {
	Id              int64                  `json:"id"`
	TaskId          string                 `json:"task_id" example:"task_9f3kd02jd"`
	Type            string                 `json:"type" example:"gpu_usage"` // gpu_usage / storage / bandwidth
	StartedAt       string                 `json:"started_at"`
	EndedAt         string                 `json:"ended_at"`
	DurationSeconds float64                `json:"duration_seconds" example:"300"`
	Cost            float64                `json:"cost" example:"0.6"`
	Details         map[string]interface{} `json:"details"`
}

type ListUsageRecordsResponse struct {
	Records []UsageRecordItem `json:"records"`
	Total   int64             `json:"total"`
}

type UsageStatsRequest struct {
	Period string `form:"period" binding:"required,oneof=day week month year" example:"month"`
}

type UsageStatsResponse struct {
	Period         string  `json:"period" example:"month"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	GpuSeconds     float64 `json:"gpu_seconds" example:"3600"`
	StorageGbHours float64 `json:"storage_gb_hours" example:"240"`
	TotalCost      float64 `json:"total_cost" example:"25.5"`
	TaskCount      int64   `json:"task_count" example:"150"`
}
