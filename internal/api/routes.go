package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)

	api := app.Group("/api", handler.DeviceMiddleware, handler.IdentityMiddleware)

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/logout", handler.Logout)
	auth.Post("/guest", handler.ContinueAsGuest)
	auth.Post("/forgot-password", handler.ForgotPassword)
	auth.Post("/reset-password", handler.ResetPassword)
	auth.Get("/session", handler.Session)

	api.Get("/resources", handler.ListResources)
	api.Get("/affirmation", handler.DailyAffirmation)
	api.Get("/challenge", handler.DailyChallenge)
	api.Get("/streak", handler.GetStreak)
	api.Get("/distraction-tools", handler.DistractionTools)

	api.Get("/progress", handler.GetProgress)
	api.Post("/progress/chapters/:id/toggle", handler.ToggleChapter)
	api.Post("/progress/reset", handler.ResetProgress)
	api.Get("/chapters", handler.ListChapters)
	api.Get("/chapters/:id", handler.GetChapter)

	settings := api.Group("/settings", handler.AuthRequired)
	settings.Post("/change-password", handler.ChangePassword)
	settings.Patch("/profile", handler.UpdateProfile)
	settings.Get("/export", handler.ExportAccount)
	settings.Delete("/account", handler.DeleteAccount)

	// Registered last: its middleware is mounted on the whole /api prefix.
	identified := api.Group("", handler.IdentityRequired)
	identified.Post("/challenge/complete", handler.CompleteChallenge)
	identified.Get("/points", handler.GetPoints)

	identified.Get("/journal", handler.ListJournal)
	identified.Get("/journal/tags", handler.JournalTags)
	identified.Get("/journal/date/:date", handler.JournalForDate)
	identified.Post("/journal", handler.CreateJournal)
	identified.Put("/journal/:id", handler.UpdateJournal)
	identified.Delete("/journal/:id", handler.DeleteJournal)

	identified.Get("/messages", handler.ListMessages)
	identified.Get("/messages/templates", handler.ListTemplates)
	identified.Post("/messages/read-all", handler.MarkAllMessagesRead)
	identified.Post("/messages/encourage", handler.SendEncouragement)
	identified.Post("/messages/:id/read", handler.MarkMessageRead)
	identified.Get("/events", handler.Events)
}
