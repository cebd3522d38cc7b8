package dto

import "time"

// SignupRequest payload for new loyalty customers.
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	BirthDay    int    `json:"birth_day"`
	BirthMonth  int    `json:"birth_month"`
}

// SignupResponse reports the welcome delivery outcome.
type SignupResponse struct {
	Status      string `json:"status"`
	CustomerID  string `json:"customer_id"`
	VoucherCode string `json:"voucher_code"`
	Email       bool   `json:"email"`
	SMS         bool   `json:"sms"`
}

// BirthdayWebhookRequest is the ad-hoc notification payload.
type BirthdayWebhookRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	VoucherCode  string `json:"voucherCode"`
	TemplateType string `json:"templateType"`
}

// DeliveryResponse reports per-channel success.
type DeliveryResponse struct {
	Status string `json:"status"`
	Email  bool   `json:"email"`
	SMS    bool   `json:"sms"`
}

// StaffLoginRequest payload for voucher lookup login.
type StaffLoginRequest struct {
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
