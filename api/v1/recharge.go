package v1

type CreateRechargeRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"100"`
	PaymentMethod string  `json:"payment_method" binding:"required,oneof=alipay wechat stripe" example:"alipay"`
}

type RechargeRecordItem struct {
	Id            int64   `json:"id"`
	UserId        int64   `json:"user_id"`
	Username      string  `json:"username" example:"user_1"`
	OrderNo       string  `json:"order_no"`
	Amount        float64 `json:"amount" example:"100"`
	Currency      string  `json:"currency" example:"CNY"`
	PaymentMethod string  `json:"payment_method" example:"alipay"`
	Status        string  `json:"status" example:"completed"` // pending / completed / failed / refunded
	CreatedAt     string  `json:"created_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

// RechargeNotifyRequest is the payment provider callback. The provider
// itself is a black box; it only reports the terminal state.
type RechargeNotifyRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
	Status  string `json:"status" binding:"required,oneof=completed failed refunded"`
}

type ListRechargeRecordsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

type ListRechargeRecordsResponse struct {
	Records []RechargeRecordItem `json:"records"`
	Total   int64                `json:"total"`
}
