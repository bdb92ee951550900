package v1

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20" example:"alice"`
	Email    string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=6" example:"123456"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"123456"`
}

// UserInfo is the user object as the dashboard consumes it.
type UserInfo struct {
	Id           int64   `json:"id"`
	Username     string  `json:"username" example:"alice"`
	Email        string  `json:"email" example:"alice@example.com"`
	Tier         string  `json:"tier" example:"pro"`
	Balance      float64 `json:"balance" example:"150.5"`
	StorageUsed  float64 `json:"storage_used" example:"5.2"`
	StorageLimit float64 `json:"storage_limit" example:"50"`
	CreatedAt    string  `json:"created_at"`
	Role         string  `json:"role" example:"user"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type BalanceResponse struct {
	Balance     float64 `json:"balance" example:"150.5"`
	Currency    string  `json:"currency" example:"CNY"`
	LastUpdated string  `json:"last_updated"`
}
