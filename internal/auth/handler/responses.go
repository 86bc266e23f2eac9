package handler

import (
	"time"

	"photoportal/internal/auth/models"
)

type UserResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id,omitempty"`
	Email         string    `json:"email"`
	IsAdmin       bool      `json:"is_admin"`
	IsTenantAdmin bool      `json:"is_tenant_admin"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *UserResponse `json:"user"`
}

func toUserResponse(u *models.User) *UserResponse {
	resp := &UserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		IsAdmin:       u.IsAdmin,
		IsTenantAdmin: u.IsTenantAdmin,
		CreatedAt:     u.CreatedAt,
	}
	if !u.TenantID.IsNil() {
		resp.TenantID = u.TenantID.String()
	}
	return resp
}
