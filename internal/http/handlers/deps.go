package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"seatwatch/internal/config"
	"seatwatch/internal/repos"
	"seatwatch/internal/services"
)

type Deps struct {
	CourseHandler   *CourseHandler
	UserHandler     *UserHandler
	AlertHandler    *AlertHandler
	SyncHandler     *SyncHandler
	RealtimeHandler *RealtimeHandler
	AdminKeyHash    string

	SyncService *services.SyncService
	Notifier    *services.Notifier
}

func NewDeps(db *sqlx.DB, cfg config.Config, feed services.FeedFetcher, sender services.EmailSender) *Deps {
	sectionRepo := repos.NewSectionRepo(db)
	userRepo := repos.NewUserRepo(db)
	alertRepo := repos.NewAlertRepo(db)

	catalogSvc := services.NewCatalogService(sectionRepo)
	userSvc := services.NewUserService(userRepo)
	alertSvc := services.NewAlertService(alertRepo, userRepo, sectionRepo)
	syncSvc := services.NewSyncService(feed, sectionRepo)
	notifier := services.NewNotifier(alertRepo, services.NewDispatcher(sender, cfg.DispatchGroupSize, cfg.DispatchGroupDelay))

	return &Deps{
		CourseHandler:   &CourseHandler{Catalog: catalogSvc},
		UserHandler:     &UserHandler{Users: userSvc, Alerts: alertSvc},
		AlertHandler:    &AlertHandler{Alerts: alertSvc, Notifier: notifier},
		SyncHandler:     &SyncHandler{Sync: syncSvc},
		RealtimeHandler: &RealtimeHandler{Live: services.NewRealtimeService(feed, cfg.RealtimeMaxAge)},
		AdminKeyHash:    cfg.AdminKeyHash,
		SyncService:     syncSvc,
		Notifier:        notifier,
	}
}

// Mount registers the JSON API. Static segments are registered before the
// parameterised routes that would shadow them.
func (d *Deps) Mount(app *fiber.App) {
	admin := RequireAdmin(d.AdminKeyHash)
	api := app.Group("/api")

	courses := api.Group("/courses")
	courses.Get("/", d.CourseHandler.List)
	courses.Get("/stats/overview", d.CourseHandler.Stats)
	courses.Get("/code/:code", d.CourseHandler.ByCode)
	courses.Get("/:sectionId", d.CourseHandler.Get)

	users := api.Group("/users")
	users.Post("/", d.UserHandler.Create)
	users.Get("/:id", d.UserHandler.Get)
	users.Put("/:id/notifications", d.UserHandler.SetNotifications)
	users.Get("/:id/alerts", d.UserHandler.ListAlerts)

	alerts := api.Group("/alerts")
	alerts.Post("/check-and-notify", admin, d.AlertHandler.CheckAndNotify)
	alerts.Post("/", d.AlertHandler.Create)
	alerts.Get("/", d.AlertHandler.List)
	alerts.Get("/:id", d.AlertHandler.Get)
	alerts.Put("/:id", d.AlertHandler.Update)
	alerts.Delete("/:id", d.AlertHandler.Delete)

	live := api.Group("/realtime")
	live.Get("/courses", d.RealtimeHandler.Courses)
	live.Get("/courses/:code", d.RealtimeHandler.ByCode)
	live.Get("/search", d.RealtimeHandler.Search)
	live.Get("/stats", d.RealtimeHandler.Stats)

	sync := api.Group("/sync", admin)
	sync.Post("/courses", d.SyncHandler.Start)
	sync.Post("/courses/sync-now", d.SyncHandler.Now)
	sync.Get("/status", d.SyncHandler.Status)
}
