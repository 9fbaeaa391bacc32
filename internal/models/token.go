package models

// TokenResponse is the OAuth2 token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// TokenRequest is the OAuth2 token endpoint request body.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	CodeVerifier string `json:"code_verifier"`
}

// RevokeRequest is the OAuth2 revocation endpoint request body.
type RevokeRequest struct {
	Token         string  `json:"token"`
	TokenTypeHint *string `json:"token_type_hint"`
}

// OAuthError is the RFC 6749 error response body.
type OAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
