package httpcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/petalnet/petalnet-go/internal/identify"
	"github.com/petalnet/petalnet-go/internal/logger"
)

const apiPrefix = "/api/v1"

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// IdentifyResponse is returned by POST /api/v1/identify.
type IdentifyResponse struct {
	ImageURL         string           `json:"image_url"`
	IdentificationID uint             `json:"identification_id,omitempty"`
	Result           *identify.Result `json:"result"`
}

// SpeciesResponse lists the species the classifier knows.
type SpeciesResponse struct {
	Count     int      `json:"count"`
	Synthetic bool     `json:"synthetic"`
	Species   []string `json:"species"`
}

// SpeciesInfoResponse carries a species description.
type SpeciesInfoResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HealthResponse reports which parts of the service are usable.
type HealthResponse struct {
	Status          string `json:"status"`
	ModelLoaded     bool   `json:"model_loaded"`
	LabelCount      int    `json:"label_count"`
	LabelsSynthetic bool   `json:"labels_synthetic"`
	ImageSearch     bool   `json:"image_search"`
	History         bool   `json:"history"`
	MQTTConnected   bool   `json:"mqtt_connected"`
}

// initAPIRoutes registers the JSON API under /api/v1.
func (s *Server) initAPIRoutes() {
	api := s.Echo.Group(apiPrefix)
	api.POST("/identify", s.apiIdentify, s.uploadBodyLimit())
	api.GET("/species", s.apiSpecies)
	api.GET("/species/:name/info", s.apiSpeciesInfo)
	api.GET("/identifications", s.apiIdentifications)
}

// HandleError writes an API error and logs it with the request id.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if code >= http.StatusInternalServerError {
		s.requestLogger(c).Error("API error",
			logger.String("message", message),
			logger.Int("code", code),
			logger.Error(err))
	}
	return c.JSON(code, resp)
}

func (s *Server) apiIdentify(c echo.Context) error {
	out, err := s.processUpload(c)
	if err != nil {
		status, message := s.userFacing(c, err)
		return s.HandleError(c, err, message, status)
	}
	return c.JSON(http.StatusOK, &IdentifyResponse{
		ImageURL:         out.Upload.URL,
		IdentificationID: out.IdentificationID,
		Result:           out.Result,
	})
}

func (s *Server) apiSpecies(c echo.Context) error {
	resolver := s.identifier.Labels()
	names := resolver.Names()
	return c.JSON(http.StatusOK, &SpeciesResponse{
		Count:     len(names),
		Synthetic: resolver.Synthetic(),
		Species:   names,
	})
}

func (s *Server) apiSpeciesInfo(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return s.HandleError(c, nil, "species name is required", http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, &SpeciesInfoResponse{
		Name:        name,
		Description: s.descriptions.Resolve(c.Request().Context(), name),
	})
}

func (s *Server) apiIdentifications(c echo.Context) error {
	if s.store == nil {
		return s.HandleError(c, nil, "identification history is disabled", http.StatusServiceUnavailable)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return s.HandleError(c, err, "limit must be a positive integer", http.StatusBadRequest)
		}
		limit = n
	}
	recent, err := s.store.Recent(c.Request().Context(), limit)
	if err != nil {
		return s.HandleError(c, err, "failed to load identifications", http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, recent)
}

// healthHandler reports degraded when the model is missing or labels are synthetic.
func (s *Server) healthHandler(c echo.Context) error {
	resolver := s.identifier.Labels()
	resp := &HealthResponse{
		Status:          "ok",
		ModelLoaded:     s.identifier.Ready(),
		LabelCount:      resolver.Len(),
		LabelsSynthetic: resolver.Synthetic(),
		ImageSearch:     s.catalog.Configured(),
		History:         s.store != nil,
		MQTTConnected:   s.publisher != nil && s.publisher.IsConnected(),
	}
	if !resp.ModelLoaded || resp.LabelsSynthetic {
		resp.Status = "degraded"
	}
	return c.JSON(http.StatusOK, resp)
}
