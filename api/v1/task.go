package v1

import "encoding/json"

type SubmitTaskRequest struct {
	Workflow json.RawMessage `json:"workflow" binding:"required"`
	Model    string          `json:"model" binding:"required" example:"sd_v1.5.safetensors"`
	GpuType  string          `json:"gpu_type" example:"RTX 4090"` // optional preference
}

type SubmitTaskResponse struct {
	TaskId     string `json:"task_id"`
	InstanceId string `json:"instance_id" example:"comfyui-1"`
	Status     string `json:"status" example:"running"`
}
