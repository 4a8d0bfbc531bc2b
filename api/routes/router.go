package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuzonet/cuzonet-backend/api/controllers"
	"github.com/cuzonet/cuzonet-backend/api/middleware"
	"github.com/cuzonet/cuzonet-backend/internal/devicestatus"
	"github.com/cuzonet/cuzonet-backend/internal/payments"
	"github.com/cuzonet/cuzonet-backend/internal/plans"
	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	"github.com/cuzonet/cuzonet-backend/pkg/config"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
)

// Deps groups everything the router wires into controllers. Device-backed
// fields (StatusCache, ImportJob) are nil when no device is configured.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Subscribers *subscribers.Service
	Payments    *payments.Service
	Plans       *plans.Service
	StatusCache *devicestatus.Cache
	ImportJob   controllers.ImportRunner
	Metrics     prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/subscribers", func(r chi.Router) {
			r.Get("/", controllers.SubscriberList(deps.Subscribers, deps.Logger))
			r.Post("/", controllers.SubscriberRegister(deps.Subscribers, deps.Logger))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.SubscriberGet(deps.Subscribers, deps.Logger))
				r.Patch("/", controllers.SubscriberUpdateContact(deps.Subscribers, deps.Logger))
				r.Delete("/", controllers.SubscriberDelete(deps.Subscribers, deps.Logger))
				r.Put("/plan", controllers.SubscriberUpdatePlan(deps.Subscribers, deps.Logger))
				r.Put("/address", controllers.SubscriberUpdateAddress(deps.Subscribers, deps.Logger))
				r.Post("/suspend", controllers.SubscriberSuspend(deps.Subscribers, deps.Logger))
				r.Post("/cutoff", controllers.SubscriberCutOff(deps.Subscribers, deps.Logger))
				r.Post("/activate", controllers.SubscriberActivate(deps.Subscribers, deps.Logger))
				r.Get("/payments", controllers.PaymentListBySubscriber(deps.Payments, deps.Logger))
				r.Post("/payments", controllers.PaymentRecord(deps.Subscribers, deps.Logger))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(deps.Payments, deps.Logger))
			r.Delete("/{id}", controllers.PaymentDelete(deps.Subscribers, deps.Logger))
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", controllers.PlanList(deps.Plans, deps.Logger))
			r.Post("/", controllers.PlanCreate(deps.Plans, deps.Logger))
			r.Get("/{id}", controllers.PlanGet(deps.Plans, deps.Logger))
			r.Put("/{id}", controllers.PlanUpdate(deps.Plans, deps.Logger))
			r.Delete("/{id}", controllers.PlanDelete(deps.Plans, deps.Logger))
		})

		r.Route("/device", func(r chi.Router) {
			r.Get("/status", controllers.DeviceStatus(deps.StatusCache, deps.Logger))
			r.Post("/test", controllers.DeviceTest(deps.Logger))
			r.Post("/import", controllers.DeviceImport(deps.ImportJob, deps.StatusCache, deps.Logger))
		})
	})

	return r
}
