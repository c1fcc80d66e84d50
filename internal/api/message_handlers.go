package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/easypeasy/internal/realtime"
	"github.com/terraincognita07/easypeasy/internal/services"
	"github.com/valyala/fasthttp"
)

const eventHeartbeatInterval = 25 * time.Second

type encouragementRequest struct {
	TemplateID uint `json:"template_id" form:"template_id"`
}

func (handler *Handler) ListMessages(c *fiber.Ctx) error {
	today, err := handler.messageService.ListToday(c.UserContext(), currentIdentity(c), handler.now())
	if err != nil {
		return handler.messageError(c, err, "failed to load messages")
	}
	return c.JSON(today)
}

func (handler *Handler) MarkMessageRead(c *fiber.Ctx) error {
	if err := handler.messageService.MarkRead(c.UserContext(), currentIdentity(c), c.Params("id")); err != nil {
		return handler.messageError(c, err, "failed to update message")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) MarkAllMessagesRead(c *fiber.Ctx) error {
	updated, err := handler.messageService.MarkAllRead(c.UserContext(), currentIdentity(c))
	if err != nil {
		return handler.messageError(c, err, "failed to update messages")
	}
	return c.JSON(fiber.Map{"updated": updated})
}

func (handler *Handler) ListTemplates(c *fiber.Ctx) error {
	templates, err := handler.messageService.Templates(c.UserContext())
	if err != nil {
		return handler.messageError(c, err, "failed to load templates")
	}
	return c.JSON(fiber.Map{"templates": templates})
}

func (handler *Handler) SendEncouragement(c *fiber.Ctx) error {
	request := encouragementRequest{}
	if err := parseBody(c, &request); err != nil || request.TemplateID == 0 {
		return apiError(c, fiber.StatusBadRequest, "template_id is required")
	}

	result, err := handler.messageService.SendEncouragement(c.UserContext(), currentIdentity(c), request.TemplateID, handler.now())
	if err != nil {
		return handler.messageError(c, err, "failed to send message")
	}
	return c.JSON(fiber.Map{"ok": true, "to_self": result.ToSelf})
}

func (handler *Handler) Events(c *fiber.Ctx) error {
	ownerID, err := currentIdentity(c).OwnerID()
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "sign in or continue as guest")
	}

	filter := realtime.Filter{Table: c.Query("table"), UserID: ownerID}
	switch filter.Table {
	case "", realtime.TableDailyMessages, realtime.TableUserPoints:
	default:
		return apiError(c, fiber.StatusBadRequest, "unknown table")
	}

	ctx, cancel := context.WithCancel(handler.streamCtx)
	subscription, err := handler.broker.Subscribe(ctx, filter)
	if err != nil {
		cancel()
		handler.log.Error("subscribe failed", "user_id", ownerID, "error", err)
		return apiError(c, fiber.StatusServiceUnavailable, "realtime unavailable")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	log := handler.log
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer subscription.Close()

		heartbeat := time.NewTicker(eventHeartbeatInterval)
		defer heartbeat.Stop()

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case event, ok := <-subscription.Events():
				if !ok {
					return
				}
				if err := writeServerSentEvent(w, event); err != nil {
					log.Debug("event stream closed", "user_id", ownerID, "error", err)
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil || w.Flush() != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}))
	return nil
}

func writeServerSentEvent(w *bufio.Writer, event realtime.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Table, data); err != nil {
		return err
	}
	return w.Flush()
}

func (handler *Handler) messageError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrIdentityRequired):
		return apiError(c, fiber.StatusUnauthorized, "sign in or continue as guest")
	case errors.Is(err, services.ErrMessageNotFound):
		return apiError(c, fiber.StatusNotFound, "message not found")
	case errors.Is(err, services.ErrTemplateNotFound):
		return apiError(c, fiber.StatusNotFound, "template not found")
	default:
		handler.log.Error(fallback, "error", err)
		return apiError(c, fiber.StatusInternalServerError, fallback)
	}
}
