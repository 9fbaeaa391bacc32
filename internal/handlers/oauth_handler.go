package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/services"
)

type OAuthHandler struct {
	oauth services.OAuthService
	codec services.TokenCodec
	audit services.AuditService
}

func NewOAuthHandler(oauth services.OAuthService, codec services.TokenCodec, audit services.AuditService) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, codec: codec, audit: audit}
}

// Authorize implements the authorization endpoint. An unauthenticated browser
// is redirected to the login page with the original query preserved, so the
// flow resumes after login. Client and redirect URI failures are answered
// directly; everything else is reported to the registered redirect URI as an
// error parameter per RFC 6749.
func (h *OAuthHandler) Authorize(c echo.Context) error {
	userID, ok := h.sessionUser(c)
	if !ok {
		loginURL := "/login?redirect=" + url.QueryEscape(c.Request().URL.RequestURI())
		return c.Redirect(http.StatusFound, loginURL)
	}

	clientID := c.QueryParam("client_id")
	redirectURI := c.QueryParam("redirect_uri")
	scope := c.QueryParam("scope")
	state := c.QueryParam("state")

	var challenge, challengeMethod *string
	if v := c.QueryParam("code_challenge"); v != "" {
		challenge = &v
	}
	if v := c.QueryParam("code_challenge_method"); v != "" {
		challengeMethod = &v
	}

	result, err := h.oauth.Issue(c.Request().Context(), userID, clientID, redirectURI, scope, state, challenge, challengeMethod)
	switch {
	case errors.Is(err, common.ErrInvalidClient):
		return c.JSON(http.StatusBadRequest, models.OAuthError{Error: "invalid_client", ErrorDescription: "unknown client_id"})
	case errors.Is(err, common.ErrInvalidRedirect):
		// Never redirect to an unregistered URI.
		return c.JSON(http.StatusBadRequest, models.OAuthError{Error: "invalid_request", ErrorDescription: "redirect_uri does not match the registered value"})
	case errors.Is(err, common.ErrInvalidScope):
		return c.Redirect(http.StatusFound, errorRedirect(redirectURI, "invalid_scope", state))
	case err != nil:
		return c.Redirect(http.StatusFound, errorRedirect(redirectURI, "server_error", state))
	}

	h.audit.Record(c.Request().Context(), userID, models.ActionAuthorize, "",
		models.JSONB{"clientId": clientID, "scope": scope}, nil, traceID(c))

	target, err := url.Parse(redirectURI)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.OAuthError{Error: "invalid_request"})
	}
	q := target.Query()
	q.Set("code", result.Code)
	if result.State != "" {
		q.Set("state", result.State)
	}
	target.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, target.String())
}

// Token exchanges an authorization code for tokens. Errors use the RFC 6749
// body; an invalid client is 401, everything else 400.
func (h *OAuthHandler) Token(c echo.Context) error {
	req := &models.TokenRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.OAuthError{Error: "invalid_request", ErrorDescription: "malformed request body"})
	}
	// Form-encoded posts per the RFC; JSON already handled by Bind.
	if req.GrantType == "" {
		req.GrantType = c.FormValue("grant_type")
		req.Code = c.FormValue("code")
		req.RedirectURI = c.FormValue("redirect_uri")
		req.ClientID = c.FormValue("client_id")
		req.CodeVerifier = c.FormValue("code_verifier")
	}

	resp, err := h.oauth.Exchange(c.Request().Context(), req)
	switch {
	case errors.Is(err, common.ErrInvalidClient):
		return c.JSON(http.StatusUnauthorized, models.OAuthError{Error: "invalid_client"})
	case errors.Is(err, common.ErrInvalidGrant):
		desc := "authorization code is invalid, expired, or already used"
		if errors.Is(err, common.ErrExpired) {
			desc = "authorization code has expired"
		} else if errors.Is(err, common.ErrAlreadyUsed) {
			desc = "authorization code has already been used"
		}
		return c.JSON(http.StatusBadRequest, models.OAuthError{Error: "invalid_grant", ErrorDescription: desc})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, models.OAuthError{Error: "server_error"})
	}

	if claims, verr := h.codec.VerifyAgent(resp.AccessToken); verr == nil {
		if userID, perr := uuid.Parse(claims.UserID); perr == nil {
			h.audit.Record(c.Request().Context(), userID, models.ActionTokenExchange, "",
				models.JSONB{"scope": resp.Scope}, nil, traceID(c))
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Revoke always answers success per RFC 7009, even for garbage tokens.
func (h *OAuthHandler) Revoke(c echo.Context) error {
	var req models.RevokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.OAuthError{Error: "invalid_request"})
	}
	if req.Token == "" {
		req.Token = c.FormValue("token")
	}

	if claims, err := h.codec.VerifyAgent(req.Token); err == nil {
		if userID, perr := uuid.Parse(claims.UserID); perr == nil {
			h.audit.Record(c.Request().Context(), userID, models.ActionRevoke, "", nil, nil, traceID(c))
		}
	}
	if err := h.oauth.Revoke(c.Request().Context(), req.Token); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"revoked": true})
}

func (h *OAuthHandler) sessionUser(c echo.Context) (uuid.UUID, bool) {
	token, err := c.Cookie(sessionCookieName)
	raw := ""
	if err == nil {
		raw = token.Value
	}
	if raw == "" {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if len(header) > 7 && header[:7] == "Bearer " {
			raw = header[7:]
		}
	}
	if raw == "" {
		return uuid.Nil, false
	}
	claims, err := h.codec.VerifySession(raw)
	if err != nil {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func errorRedirect(redirectURI, code, state string) string {
	target, err := url.Parse(redirectURI)
	if err != nil {
		return "/login"
	}
	q := target.Query()
	q.Set("error", code)
	if state != "" {
		q.Set("state", state)
	}
	target.RawQuery = q.Encode()
	return target.String()
}

func traceID(c echo.Context) string {
	id, _ := common.GetTraceIDFromContext(c.Request().Context())
	return id
}
