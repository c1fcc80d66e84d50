package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/easypeasy/internal/services"
)

type journalRequest struct {
	Date  string   `json:"date" form:"date"`
	Title string   `json:"title" form:"title"`
	Entry string   `json:"entry" form:"entry"`
	Tags  []string `json:"tags" form:"tags"`
}

func (request journalRequest) input() services.JournalInput {
	return services.JournalInput{Date: request.Date, Title: request.Title, Entry: request.Entry, Tags: request.Tags}
}

func (handler *Handler) DailyChallenge(c *fiber.Ctx) error {
	challenge, err := handler.pointsService.ChallengeOfTheDay(c.UserContext(), handler.now())
	if err != nil {
		if errors.Is(err, services.ErrNoChallenges) {
			return apiError(c, fiber.StatusNotFound, "no challenge available")
		}
		handler.log.Error("load daily challenge failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load challenge")
	}
	return c.JSON(challenge)
}

func (handler *Handler) CompleteChallenge(c *fiber.Ctx) error {
	_, store := currentDevice(c)
	result, err := handler.pointsService.CompleteChallenge(c.UserContext(), currentIdentity(c), store, handler.now())
	if err != nil {
		return handler.engagementError(c, err, "failed to complete challenge")
	}
	return c.JSON(result)
}

func (handler *Handler) GetPoints(c *fiber.Ctx) error {
	_, store := currentDevice(c)
	state, err := handler.pointsService.Points(c.UserContext(), currentIdentity(c), store, handler.now())
	if err != nil {
		return handler.engagementError(c, err, "failed to load points")
	}
	return c.JSON(state)
}

func (handler *Handler) ListJournal(c *fiber.Ctx) error {
	_, store := currentDevice(c)
	entries, err := handler.journalService.List(c.UserContext(), currentIdentity(c), store)
	if err != nil {
		return handler.engagementError(c, err, "failed to load journal")
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func (handler *Handler) JournalForDate(c *fiber.Ctx) error {
	_, store := currentDevice(c)
	entry, err := handler.journalService.ForDate(c.UserContext(), currentIdentity(c), store, c.Params("date"))
	if err != nil {
		return handler.engagementError(c, err, "failed to load journal")
	}
	return c.JSON(entry)
}

func (handler *Handler) JournalTags(c *fiber.Ctx) error {
	_, store := currentDevice(c)
	tags, err := handler.journalService.Tags(c.UserContext(), currentIdentity(c), store)
	if err != nil {
		return handler.engagementError(c, err, "failed to load tags")
	}
	return c.JSON(fiber.Map{"tags": tags})
}

func (handler *Handler) CreateJournal(c *fiber.Ctx) error {
	request := journalRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	_, store := currentDevice(c)
	entry, err := handler.journalService.Save(c.UserContext(), currentIdentity(c), store, request.input())
	if err != nil {
		return handler.engagementError(c, err, "failed to save journal")
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (handler *Handler) UpdateJournal(c *fiber.Ctx) error {
	request := journalRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	_, store := currentDevice(c)
	entry, err := handler.journalService.Update(c.UserContext(), currentIdentity(c), store, c.Params("id"), request.input())
	if err != nil {
		return handler.engagementError(c, err, "failed to save journal")
	}
	return c.JSON(entry)
}

func (handler *Handler) DeleteJournal(c *fiber.Ctx) error {
	_, store := currentDevice(c)
	if err := handler.journalService.Delete(c.UserContext(), currentIdentity(c), store, c.Params("id")); err != nil {
		return handler.engagementError(c, err, "failed to delete journal")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) engagementError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrIdentityRequired):
		return apiError(c, fiber.StatusUnauthorized, "sign in or continue as guest")
	case errors.Is(err, services.ErrJournalNotFound):
		return apiError(c, fiber.StatusNotFound, "journal entry not found")
	case errors.Is(err, services.ErrJournalInvalidDate):
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	case errors.Is(err, services.ErrJournalEntryTooLong):
		return apiError(c, fiber.StatusBadRequest, "journal entry too long")
	case errors.Is(err, services.ErrJournalEmpty):
		return apiError(c, fiber.StatusBadRequest, "journal entry is empty")
	case errors.Is(err, services.ErrNoChallenges):
		return apiError(c, fiber.StatusNotFound, "no challenge available")
	default:
		handler.log.Error(fallback, "error", err)
		return apiError(c, fiber.StatusInternalServerError, fallback)
	}
}
