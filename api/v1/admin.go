package v1

type AdminStatsResponse struct {
	TotalUsers        int64   `json:"total_users" example:"1250"`
	ActiveUsersToday  int64   `json:"active_users_today" example:"342"`
	TotalRevenue      float64 `json:"total_revenue" example:"125680.5"`
	TotalTasksToday   int64   `json:"total_tasks_today" example:"1580"`
	InstancesOnline   int     `json:"instances_online" example:"3"`
	InstancesTotal    int     `json:"instances_total" example:"3"`
	AvgQueueLength    float64 `json:"avg_queue_length" example:"2.3"`
	GpuUtilizationAvg float64 `json:"gpu_utilization_avg" example:"68.5"`
}

type AdminUserItem struct {
	UserInfo
	Status      string  `json:"status" example:"active"` // active / suspended / banned
	LastLoginAt *string `json:"last_login_at,omitempty"`
}

type ListAdminUsersRequest struct {
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
	Search string `form:"search"`
}

type ListAdminUsersResponse struct {
	Users []AdminUserItem `json:"users"`
	Total int64           `json:"total"`
}

// UpdateAdminUserRequest is the admin override of ledger/tier state.
// It runs under the same invariants as the user-initiated paths.
type UpdateAdminUserRequest struct {
	Tier    *string  `json:"tier"`
	Status  *string  `json:"status"`
	Role    *string  `json:"role"`
	Balance *float64 `json:"balance"`
}

type FinanceStatsResponse struct {
	TotalRevenue      float64 `json:"total_revenue" example:"125680.5"`
	RevenueToday      float64 `json:"revenue_today" example:"2350"`
	RevenueThisWeek   float64 `json:"revenue_this_week" example:"15680"`
	RevenueThisMonth  float64 `json:"revenue_this_month" example:"42350"`
	TotalRecharges    int64   `json:"total_recharges" example:"3250"`
	AvgRechargeAmount float64 `json:"avg_recharge_amount" example:"38.67"`
}

type BillingConfig struct {
	GpuPricePerSecond    float64 `json:"gpu_price_per_second" example:"0.002"`
	StoragePricePerGbDay float64 `json:"storage_price_per_gb_day" example:"0.01"`
	BandwidthPricePerGb  float64 `json:"bandwidth_price_per_gb" example:"0.05"`
}

type InstancePoolConfig struct {
	MaxQueuePerInstance        int  `json:"max_queue_per_instance" example:"10"`
	HealthCheckIntervalSeconds int  `json:"health_check_interval_seconds" example:"30"`
	AutoScaleEnabled           bool `json:"auto_scale_enabled"`
}

type SystemLimitsConfig struct {
	MaxUploadSizeMb   int      `json:"max_upload_size_mb" example:"4096"`
	AllowedModelTypes []string `json:"allowed_model_types"`
	MaintenanceMode   bool     `json:"maintenance_mode"`
}

// SystemConfigBody is the singleton runtime configuration. Updates take
// effect for subsequent scheduling/metering decisions only.
type SystemConfigBody struct {
	Billing      BillingConfig      `json:"billing"`
	InstancePool InstancePoolConfig `json:"instance_pool"`
	System       SystemLimitsConfig `json:"system"`
}

type UpdateSystemConfigRequest struct {
	Billing      *BillingConfig      `json:"billing"`
	InstancePool *InstancePoolConfig `json:"instance_pool"`
	System       *SystemLimitsConfig `json:"system"`
}

type SystemLogItem struct {
	Id        int64  `json:"id"`
	Level     string `json:"level" example:"info"` // info / warn / error
	Source    string `json:"source" example:"billing"`
	Message   string `json:"message"`
	UserId    *int64 `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"created_at"`
}

type ListSystemLogsRequest struct {
	Level  string `form:"level"`
	Source string `form:"source"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type ListSystemLogsResponse struct {
	Logs  []SystemLogItem `json:"logs"`
	Total int64           `json:"total"`
}
