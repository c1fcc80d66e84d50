package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/easypeasy/internal/content"
	"github.com/terraincognita07/easypeasy/internal/services"
)

type resetProgressRequest struct {
	Confirmed bool `json:"confirmed" form:"confirmed"`
}

type chapterView struct {
	content.Chapter
	Completed  bool `json:"completed"`
	Accessible bool `json:"accessible"`
}

func (handler *Handler) progressSession(c *fiber.Ctx) (*services.ProgressSession, error) {
	deviceID, store := currentDevice(c)
	if store == nil {
		return nil, errors.New("device store missing")
	}
	return handler.sessions.Get(c.UserContext(), deviceID, currentIdentity(c), store)
}

func (handler *Handler) GetProgress(c *fiber.Ctx) error {
	session, err := handler.progressSession(c)
	if err != nil {
		handler.log.Error("load progress failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load progress")
	}
	return c.JSON(session.Snapshot())
}

func (handler *Handler) ToggleChapter(c *fiber.Ctx) error {
	chapterID, err := c.ParamsInt("id")
	if err != nil || !services.ValidChapter(chapterID) {
		return apiError(c, fiber.StatusBadRequest, "invalid chapter")
	}

	session, err := handler.progressSession(c)
	if err != nil {
		handler.log.Error("load progress failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load progress")
	}

	result, err := session.CompleteChapter(c.UserContext(), chapterID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidChapter) {
			return apiError(c, fiber.StatusBadRequest, "invalid chapter")
		}
		handler.log.Error("toggle chapter failed", "chapter", chapterID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to save progress")
	}
	return c.JSON(result)
}

func (handler *Handler) ResetProgress(c *fiber.Ctx) error {
	request := resetProgressRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	session, err := handler.progressSession(c)
	if err != nil {
		handler.log.Error("load progress failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load progress")
	}
	if err := session.Reset(c.UserContext(), request.Confirmed); err != nil {
		if errors.Is(err, services.ErrResetNotConfirmed) {
			return apiError(c, fiber.StatusBadRequest, "reset must be confirmed")
		}
		handler.log.Error("reset progress failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to reset progress")
	}
	return c.JSON(session.Snapshot())
}

func (handler *Handler) ListChapters(c *fiber.Ctx) error {
	session, err := handler.progressSession(c)
	if err != nil {
		handler.log.Error("load progress failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load progress")
	}

	chapters := make([]chapterView, 0, handler.catalog.TotalChapters())
	for _, chapter := range handler.catalog.Chapters {
		chapters = append(chapters, chapterView{
			Chapter:    chapter,
			Completed:  session.IsChapterCompleted(chapter.ID),
			Accessible: session.IsChapterAccessible(chapter.ID),
		})
	}
	return c.JSON(fiber.Map{"chapters": chapters, "progress": session.Snapshot()})
}

func (handler *Handler) GetChapter(c *fiber.Ctx) error {
	chapterID, err := c.ParamsInt("id")
	if err != nil {
		return apiError(c, fiber.StatusNotFound, "chapter not found")
	}
	chapter, ok := handler.catalog.Chapter(chapterID)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "chapter not found")
	}

	session, err := handler.progressSession(c)
	if err != nil {
		handler.log.Error("load progress failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load progress")
	}
	if !session.IsChapterAccessible(chapterID) {
		return apiError(c, fiber.StatusForbidden, "complete the previous chapter first")
	}

	response := fiber.Map{
		"chapter":   chapterView{Chapter: chapter, Completed: session.IsChapterCompleted(chapterID), Accessible: true},
		"total":     handler.catalog.TotalChapters(),
		"previous":  nil,
		"next":      nil,
		"milestone": services.IsMilestoneChapter(chapterID),
	}
	if chapterID > 1 {
		response["previous"] = chapterID - 1
	}
	if chapterID < handler.catalog.TotalChapters() {
		response["next"] = chapterID + 1
	}
	return c.JSON(response)
}

func (handler *Handler) GetStreak(c *fiber.Ctx) error {
	streak, err := handler.completion.Streak(c.UserContext(), currentIdentity(c), handler.now())
	if err != nil {
		handler.log.Error("load streak failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load streak")
	}
	return c.JSON(streak)
}
