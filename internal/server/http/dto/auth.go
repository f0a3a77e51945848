package dto

// AuthRequest is the credentials payload of register and login.
type AuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SessionResponse repeats the issued token for clients that do not read headers or cookies.
type SessionResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

// NewSessionResponse wraps token as a bearer session.
func NewSessionResponse(token string) SessionResponse {
	return SessionResponse{Token: token, TokenType: "Bearer"}
}
