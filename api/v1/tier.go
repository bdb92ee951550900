package v1

type TierConfigItem struct {
	Key      string   `json:"key" example:"pro"`
	Label    string   `json:"label" example:"专业版"`
	Color    string   `json:"color" example:"bg-primary/10 text-primary"`
	Price    string   `json:"price" example:"¥99/月"`
	Features []string `json:"features"`
	Popular  bool     `json:"popular" example:"true"`
}

type SubscriptionResponse struct {
	Tier      string `json:"tier" example:"pro"`
	Status    string `json:"status" example:"active"` // active / expired / canceled
	StartedAt string `json:"started_at"`
	ExpiresAt string `json:"expires_at"`
	AutoRenew bool   `json:"auto_renew"`
}

type UpgradeSubscriptionRequest struct {
	TargetTier string `json:"target_tier" binding:"required" example:"enterprise"`
}
