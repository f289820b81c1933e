package domain

// User is the local identity and profile data decoded from the access
// token and the profile endpoint.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Email  string `json:"email,omitempty"`
}
