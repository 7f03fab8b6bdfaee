package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

type errorResponse struct {
	Error string `json:"error"`
}

type groupSummary struct {
	Name        string `json:"name"`
	Entity      string `json:"entity"`
	Description string `json:"description"`
	NumFeatures int    `json:"num_features"`
	CreatedAt   string `json:"created_at"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.reg.Health(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "degraded",
			"service":   s.cfg.Name,
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   s.cfg.Name,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListGroups(c *fiber.Ctx) error {
	groups := s.reg.Groups()
	out := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupSummary{
			Name:        g.Name,
			Entity:      g.Entity,
			Description: g.Description,
			NumFeatures: g.Len(),
			CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"groups": out})
}

func (s *Server) handleListFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"features": s.reg.ListFeatures()})
}

func (s *Server) handleFeatureMetadata(c *fiber.Ctx) error {
	entity := c.Params("entity")
	name := c.Params("feature")

	md, ok := s.reg.GetFeatureMetadata(name, entity)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{
			Error: "feature '" + name + "' not found for entity '" + entity + "'",
		})
	}
	return c.JSON(md)
}

func (s *Server) handleOnlineFeatures(c *fiber.Ctx) error {
	group := c.Params("group")
	entityID := c.Params("entityId")

	fields, err := s.reg.GetOnlineFeatures(c.Context(), group, entityID)
	if err != nil {
		return s.errorStatus(c, err)
	}
	if len(fields) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{
			Error: "no features found for entity '" + entityID + "' in group '" + group + "'",
		})
	}

	// Optional projection to a requested subset.
	if requested := c.Query("features"); requested != "" {
		keep := make(map[string]struct{})
		for _, name := range strings.Split(requested, ",") {
			keep[strings.TrimSpace(name)] = struct{}{}
		}
		for name := range fields {
			if _, ok := keep[name]; !ok {
				delete(fields, name)
			}
		}
	}

	return c.JSON(fields)
}

func (s *Server) handleIngest(c *fiber.Ctx) error {
	group := c.Params("group")
	entityID := c.Params("entityId")

	raw := make(map[string]interface{})
	if err := c.BodyParser(&raw); err != nil || len(raw) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "no data provided"})
	}

	// The body may carry an explicit ingestion timestamp; otherwise the
	// server stamps receive time. "timestamp" is a reserved record column,
	// never a feature, so consuming it here cannot shadow one.
	ts := time.Now().UTC()
	if v, ok := raw["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			ts = parsed
			delete(raw, "timestamp")
		}
	}

	result, err := s.reg.Ingest(c.Context(), group, entityID, raw, ts)
	if err != nil {
		return s.errorStatus(c, err)
	}

	resp := fiber.Map{
		"status":    "success",
		"group":     group,
		"entity_id": entityID,
		"timestamp": result.Record.Timestamp.Format(time.RFC3339Nano),
	}
	if result.OnlineErr != nil {
		resp["warning"] = "online store refresh failed, record durable offline only"
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// errorStatus maps the error taxonomy onto HTTP status codes: not-found to
// 404, validation and transformation to 400, storage and timeout to 500.
func (s *Server) errorStatus(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch skyerrors.TypeOf(err) {
	case skyerrors.ErrorTypeNotFound:
		status = fiber.StatusNotFound
	case skyerrors.ErrorTypeValidation, skyerrors.ErrorTypeTransformation, skyerrors.ErrorTypeData:
		status = fiber.StatusBadRequest
	case skyerrors.ErrorTypeStorage, skyerrors.ErrorTypeTimeout:
		status = fiber.StatusInternalServerError
	}

	if status >= fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(errorResponse{Error: err.Error()})
}
