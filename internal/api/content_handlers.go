package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) ListResources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"resources": handler.catalog.Resources})
}

func (handler *Handler) DailyAffirmation(c *fiber.Ctx) error {
	affirmations := handler.catalog.Affirmations
	if len(affirmations) == 0 {
		return apiError(c, fiber.StatusNotFound, "no affirmations available")
	}
	today := handler.now().In(handler.location)
	return c.JSON(affirmations[today.YearDay()%len(affirmations)])
}

const featuredDistractionTools = 5

func (handler *Handler) DistractionTools(c *fiber.Ctx) error {
	tools := handler.catalog.DistractionTools
	if len(tools) == 0 {
		return apiError(c, fiber.StatusNotFound, "no distraction tools available")
	}
	if c.QueryBool("random") {
		return c.JSON(fiber.Map{"tool": tools[handler.randIntn(len(tools))]})
	}
	if len(tools) > featuredDistractionTools {
		tools = tools[:featuredDistractionTools]
	}
	return c.JSON(fiber.Map{"tools": tools, "total": len(handler.catalog.DistractionTools)})
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return apiError(c, fiber.StatusNotFound, "not found")
}
