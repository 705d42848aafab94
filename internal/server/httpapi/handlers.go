package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type checkoutRequest struct {
	PriceID string `json:"price_id" binding:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	TokenID     string    `json:"jti"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type userResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	SignInCount     int        `json:"sign_in_count"`
	CurrentSignInAt *time.Time `json:"current_sign_in_at"`
	LastSignInAt    *time.Time `json:"last_sign_in_at"`
	CurrentSignInIP string     `json:"current_sign_in_ip"`
	LastSignInIP    string     `json:"last_sign_in_ip"`
}

type urlResponse struct {
	URL string `json:"url"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		SignInCount:     u.SignInCount,
		CurrentSignInAt: u.CurrentSignInAt,
		LastSignInAt:    u.LastSignInAt,
		CurrentSignInIP: u.CurrentSignInIP,
		LastSignInIP:    u.LastSignInIP,
	}
}

// writeToken replies with the token in the body and, like a sign-in
// response, in the Authorization header.
func writeToken(c *gin.Context, t *services.IssuedToken) {
	c.Header(common.AuthorizationHeaderName, common.BearerScheme+" "+t.AccessToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   common.BearerScheme,
		TokenID:     t.TokenID,
		ExpiresAt:   t.ExpiresAt,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "email and password are required"})
		return
	}

	u, err := s.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(u))
}

func (s *Server) signIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "email and password are required"})
		return
	}

	t, err := s.users.SignIn(c.Request.Context(), req.Email, req.Password, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeToken(c, t)
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.users.SignOut(c.Request.Context(), ownerID(c), tokenID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) refresh(c *gin.Context) {
	t, err := s.users.Refresh(c.Request.Context(), ownerID(c), tokenID(c), c.Request.UserAgent())
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeToken(c, t)
}

func (s *Server) profile(c *gin.Context) {
	u, err := s.users.Profile(c.Request.Context(), ownerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

func (s *Server) deleteAccount(c *gin.Context) {
	if err := s.users.DeleteAccount(c.Request.Context(), ownerID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getToken(c *gin.Context) {
	info, err := s.accounts.GetToken(c.Request.Context(), ownerID(c), c.Param("jti"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) listActiveTokens(c *gin.Context) {
	infos, err := s.accounts.ListActiveTokens(c.Request.Context(), ownerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) revokeToken(c *gin.Context) {
	if err := s.accounts.RevokeToken(c.Request.Context(), ownerID(c), c.Param("jti")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) revokeAllTokens(c *gin.Context) {
	if err := s.accounts.RevokeAllTokens(c.Request.Context(), ownerID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) hasActiveSubscription(c *gin.Context) {
	active, err := s.billing.HasActiveSubscription(c.Request.Context(), ownerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !active {
		c.Status(http.StatusPaymentRequired)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) createCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "price_id is required"})
		return
	}

	url, err := s.billing.CreateCheckoutSession(c.Request.Context(), ownerID(c), req.PriceID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, urlResponse{URL: url})
}

func (s *Server) createPortalSession(c *gin.Context) {
	url, err := s.billing.CreatePortalSession(c.Request.Context(), ownerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, urlResponse{URL: url})
}
