package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vit0-9/netecho/models"
	"github.com/vit0-9/netecho/pkg/introspect"
	"github.com/vit0-9/netecho/pkg/utils"
	"github.com/vit0-9/netecho/views"
)

// IndexTemplate is the name of the HTML page template.
const IndexTemplate = "index.html"

// EchoHandlers serve the request introspection endpoints.
type EchoHandlers struct {
	assembler    *introspect.Assembler
	maxBodyBytes int64
	appVersion   string
}

func NewEchoHandlers(assembler *introspect.Assembler, maxBodyBytes int64, appVersion string) *EchoHandlers {
	return &EchoHandlers{
		assembler:    assembler,
		maxBodyBytes: maxBodyBytes,
		appVersion:   appVersion,
	}
}

// RequestInfoHandler godoc
// @Summary      Echo request information
// @Description  Describes the calling client, the server address it reached and the HTTP request itself.
// @Description  HEAD only validates the override headers and returns an empty body.
// @Tags         Echo
// @Produce      json
// @Param        omit_http_info  query     bool  false  "Leave out the http_info block"
// @Success      200  {object}  models.RequestInfo
// @Failure      400  {object}  models.APIErrorResponse  "Malformed override header or query"
// @Failure      413  {object}  models.APIErrorResponse  "Request body too large"
// @Failure      502  {object}  models.APIErrorResponse  "Server address could not be resolved"
// @Router       /api/v1 [get]
func (h *EchoHandlers) RequestInfoHandler(c *gin.Context) {
	var query models.EchoQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidQuery, "Invalid query parameters", err)
		return
	}

	in, ok := h.inbound(c)
	if !ok {
		return
	}

	if c.Request.Method == http.MethodHead {
		if err := h.assembler.Validate(in); err != nil {
			h.handleError(c, err)
			return
		}
		c.Status(http.StatusOK)
		return
	}

	info, err := h.assembler.Assemble(c.Request.Context(), in, introspect.Options{OmitHTTPInfo: query.OmitHTTPInfo})
	if err != nil {
		h.handleError(c, err)
		return
	}

	payload, err := models.EncodeJSON(info)
	if err != nil {
		h.handleError(c, fmt.Errorf("encoding request info: %w", err))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// PlainHandler godoc
// @Summary      Client IP address
// @Description  Returns the client IP address followed by a newline.
// @Tags         Echo
// @Produce      plain
// @Success      200  {string}  string
// @Router       /plain [get]
func (h *EchoHandlers) PlainHandler(c *gin.Context) {
	c.String(http.StatusOK, "%s\n", c.ClientIP())
}

// PageHandler renders the request information as HTML.
func (h *EchoHandlers) PageHandler(c *gin.Context) {
	in, ok := h.inbound(c)
	if !ok {
		return
	}

	if c.Request.Method == http.MethodHead {
		if err := h.assembler.Validate(in); err != nil {
			h.handleError(c, err)
			return
		}
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		return
	}

	info, err := h.assembler.Assemble(c.Request.Context(), in, introspect.Options{})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.HTML(http.StatusOK, IndexTemplate, gin.H{
		"SiteEmoji": views.SiteEmoji,
		"SiteTitle": views.SiteTitle,
		"Version":   h.appVersion,
		"Info":      info,
	})
}

// FaviconHandler serves the site emoji as an SVG icon.
func (h *EchoHandlers) FaviconHandler(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", []byte(views.FaviconSVG()))
}

// inbound reads the bounded request body and snapshots the request. On
// failure the response has already been written.
func (h *EchoHandlers) inbound(c *gin.Context) (introspect.Inbound, bool) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
		if err != nil {
			h.handleError(c, err)
			return introspect.Inbound{}, false
		}
	}
	return introspect.FromRequest(c.Request, c.ClientIP(), body), true
}

func (h *EchoHandlers) handleError(c *gin.Context, err error) {
	var (
		malformed  *utils.MalformedOverrideError
		resolution *utils.ResolutionError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &malformed):
		abortWithError(c, http.StatusBadRequest, models.ErrCodeMalformedOverride,
			fmt.Sprintf("Malformed %s header", malformed.Header), err)
	case errors.As(err, &resolution):
		abortWithError(c, http.StatusBadGateway, models.ErrCodeResolution,
			fmt.Sprintf("Could not resolve server address for %q", resolution.Host), err)
	case errors.As(err, &tooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, models.ErrCodeBodyTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Failed to assemble request info")
		abortWithError(c, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to assemble request info", nil)
	}
}

func abortWithError(c *gin.Context, status int, code, message string, err error) {
	resp := models.APIErrorResponse{
		StatusCode: status,
		ErrorCode:  code,
		Message:    message,
	}
	if err != nil {
		resp.Details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}
