package auth

import (
	"errors"
	"net/http"

	"authgate/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	ErrorModeGeneric  = "generic"
	ErrorModeDetailed = "detailed"

	genericMessage = "Something went wrong"
)

// ErrorResponse is the JSON body of every failed callback.
type ErrorResponse struct {
	Message string `json:"message" example:"Something went wrong"`
}

type Handler struct {
	service   *Service
	logger    logger.Logger
	errorMode string
}

func NewHandler(s *Service, log logger.Logger, errorMode string) *Handler {
	if errorMode != ErrorModeDetailed {
		errorMode = ErrorModeGeneric
	}
	return &Handler{
		service:   s,
		logger:    log,
		errorMode: errorMode,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	g := router.Group("/auth/google")
	g.GET("", h.LoginHandler)
	g.GET("/callback", h.CallbackHandler)
}

// LoginHandler godoc
// @Summary      Start Google OAuth2 login
// @Description  Redirects the browser to the Google consent page.
// @Tags         Authentication
// @Success      307 {string} string "Redirect"
// @Router       /auth/google [get]
func (h *Handler) LoginHandler(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, h.service.LoginURL())
}

// CallbackHandler godoc
// @Summary      Google OAuth2 callback
// @Description  Exchanges the authorization code for an access token, fetches the Google profile,
// @Description  finds or creates the local user, then redirects to the client with a signed JWT.
// @Description  The JWT "id" claim is a decimal string, not a JSON number: user ids are 64-bit
// @Description  snowflakes that lose precision as JavaScript numbers. Clients must compare it as a string.
// @Tags         Authentication
// @Produce      json
// @Param        code query string true "Authorization code returned from Google after user consents"
// @Success      302 {string} string "Redirect to client with google_token query param"
// @Failure      400 {object} ErrorResponse "Validation error (detailed error mode only)"
// @Failure      500 {object} ErrorResponse "Server error during the OAuth process"
// @Router       /auth/google/callback [get]
func (h *Handler) CallbackHandler(c *gin.Context) {
	redirectURL, err := h.service.Callback(c.Request.Context(), c.Query("code"))
	if err != nil {
		kind := KindOf(err)
		h.logger.Error("google callback failed",
			logger.Field{Key: "kind", Value: string(kind)},
			logger.Err(err),
		)
		status, message := h.response(kind, err)
		c.JSON(status, ErrorResponse{Message: message})
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

func (h *Handler) response(kind Kind, err error) (int, string) {
	if h.errorMode != ErrorModeDetailed {
		return http.StatusInternalServerError, genericMessage
	}

	switch kind {
	case KindValidation:
		if errors.Is(err, ErrCodeReused) {
			return http.StatusBadRequest, "Code already used"
		}
		return http.StatusBadRequest, "Code is required"
	case KindUnverified:
		return http.StatusForbidden, "Email not verified"
	case KindTokenExchange, KindProfile:
		return http.StatusBadGateway, genericMessage
	default:
		return http.StatusInternalServerError, genericMessage
	}
}
