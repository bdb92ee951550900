package v1

type PrivateModelItem struct {
	Id                int64   `json:"id"`
	Name              string  `json:"name" example:"my_custom_lora.safetensors"`
	Type              string  `json:"type" example:"lora"` // checkpoint / lora / vae / embedding
	SizeBytes         int64   `json:"size_bytes" example:"143654912"`
	UploadedAt        string  `json:"uploaded_at"`
	StorageCostPerDay float64 `json:"storage_cost_per_day" example:"0.01"`
}

type ListPrivateModelsResponse struct {
	Models []PrivateModelItem `json:"models"`
}

type UploadModelRequest struct {
	Name      string `json:"name" binding:"required" example:"my_custom_lora.safetensors"`
	Type      string `json:"type" binding:"required" example:"lora"`
	SizeBytes int64  `json:"size_bytes" binding:"required,min=1"`
}

// AdminModelItem extends the private view with ownership and access control.
type AdminModelItem struct {
	PrivateModelItem
	UserId     int64  `json:"user_id"`
	Username   string `json:"username" example:"system"`
	Visibility string `json:"visibility" example:"base"` // base / vip / private
	Status     string `json:"status" example:"active"`
}

type ListAdminModelsRequest struct {
	Visibility string `form:"visibility"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type ListAdminModelsResponse struct {
	Models []AdminModelItem `json:"models"`
	Total  int64            `json:"total"`
}

type UpdateAdminModelRequest struct {
	Visibility *string `json:"visibility"`
	Status     *string `json:"status"`
}
