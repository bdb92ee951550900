package v1

// InstanceItem is a worker instance as the admin dashboard consumes it.
// The wire vocabulary for status is canonical online/busy/offline; the
// legacy active/inactive synonyms are normalized by the client and never
// produced here.
type InstanceItem struct {
	Id             string  `json:"id" example:"comfyui-1"`
	Url            string  `json:"url" example:"http://comfyui-1:8188"`
	Name           string  `json:"name" example:"ComfyUI Instance 1"`
	Status         string  `json:"status" example:"online"` // online / busy / offline
	GpuType        string  `json:"gpu_type" example:"RTX 4090"`
	QueueSize      int     `json:"queue_size" example:"2"`
	CurrentTask    string  `json:"current_task,omitempty" example:"task_abc123"`
	UptimeSeconds  int64   `json:"uptime_seconds" example:"345600"`
	GpuUtilization float64 `json:"gpu_utilization" example:"75"`
	VramUsedGb     float64 `json:"vram_used_gb" example:"18.5"`
	VramTotalGb    float64 `json:"vram_total_gb" example:"24"`
}

type RegisterInstanceRequest struct {
	Id          string  `json:"id" binding:"required" example:"comfyui-4"`
	Url         string  `json:"url" binding:"required,url" example:"http://comfyui-4:8188"`
	Name        string  `json:"name" binding:"required" example:"ComfyUI Instance 4"`
	GpuType     string  `json:"gpu_type" example:"RTX 4090"`
	VramTotalGb float64 `json:"vram_total_gb" example:"24"`
}
