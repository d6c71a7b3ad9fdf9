// studybuddy/utils/types/user.go
package types

import "time"

type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	MobileNumber string `json:"mobile_number"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

type SessionView struct {
	Username           string    `json:"username"`
	State              string    `json:"state"`
	ActiveConversation string    `json:"active_conversation,omitempty"`
	Theme              string    `json:"theme"`
	ExpiresAt          time.Time `json:"expires_at"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}
