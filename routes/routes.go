package routes

import (
	"citizenone/handler"
	"citizenone/metrics"
	"citizenone/middleware"
	"citizenone/service"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies is everything the router wires into handlers
type Dependencies struct {
	Complaints     *service.ComplaintService
	Lifecycle      *service.LifecycleManager
	Users          *service.UserService
	Departments    *service.DepartmentService
	Notifications  *service.NotificationService
	DB             handler.Pinger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
}

// SetupRoutes configures all API routes
func SetupRoutes(d Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Metrics(d.Metrics))

	complaintHandler := handler.NewComplaintHandler(d.Complaints, d.Lifecycle, d.MaxUploadBytes)
	publicHandler := handler.NewPublicHandler(d.Complaints)
	authHandler := handler.NewAuthHandler(d.Users)
	adminHandler := handler.NewAdminHandler(d.Users)
	departmentHandler := handler.NewDepartmentHandler(d.Departments)
	notificationHandler := handler.NewNotificationHandler(d.Notifications)
	healthHandler := handler.NewHealthHandler(d.DB)

	authMiddleware := middleware.NewAuthMiddleware(d.Users)
	requireAuth := authMiddleware.RequireAuth

	// API v1 routes
	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// Auth: registration and login are open; the rest needs a token
	auth := apiV1.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.Handle("/me", requireAuth(http.HandlerFunc(authHandler.Me))).Methods("GET")
	auth.Handle("/me/preferences", requireAuth(http.HandlerFunc(authHandler.UpdatePreferences))).Methods("PUT")

	// Complaint routes (protected - require auth); visibility is decided per principal in the service
	complaints := apiV1.PathPrefix("/complaints").Subrouter()
	complaints.Use(requireAuth)
	complaints.HandleFunc("", complaintHandler.ListComplaints).Methods("GET")
	complaints.HandleFunc("", complaintHandler.CreateComplaint).Methods("POST")
	complaints.HandleFunc("/stats", complaintHandler.GetStats).Methods("GET")
	complaints.HandleFunc("/{id:[0-9]+}", complaintHandler.GetComplaint).Methods("GET")
	complaints.HandleFunc("/{id:[0-9]+}", complaintHandler.UpdateComplaint).Methods("PATCH")
	complaints.HandleFunc("/{id:[0-9]+}/timeline", complaintHandler.GetStatusTimeline).Methods("GET")
	complaints.HandleFunc("/{id:[0-9]+}/attachments", complaintHandler.UploadAttachment).Methods("POST")
	complaints.HandleFunc("/{id:[0-9]+}/attachments/{attachment_id:[0-9]+}", complaintHandler.DeleteAttachment).Methods("DELETE")

	// Departments: any signed-in user may read; writes are admin only
	departments := apiV1.PathPrefix("/departments").Subrouter()
	departments.Use(requireAuth)
	departments.HandleFunc("", departmentHandler.ListDepartments).Methods("GET")
	departments.HandleFunc("/{id:[0-9]+}", departmentHandler.GetDepartment).Methods("GET")
	departments.Handle("", middleware.RequireAdminAuth(http.HandlerFunc(departmentHandler.CreateDepartment))).Methods("POST")
	departments.Handle("/{id:[0-9]+}", middleware.RequireAdminAuth(http.HandlerFunc(departmentHandler.UpdateDepartment))).Methods("PUT")
	departments.Handle("/{id:[0-9]+}/staff", middleware.RequireStaff(http.HandlerFunc(departmentHandler.ListStaff))).Methods("GET")

	// Notification inbox of the signed-in user
	notifications := apiV1.PathPrefix("/notifications").Subrouter()
	notifications.Use(requireAuth)
	notifications.HandleFunc("", notificationHandler.ListNotifications).Methods("GET")
	notifications.HandleFunc("/unread-count", notificationHandler.UnreadCount).Methods("GET")
	notifications.HandleFunc("/read-all", notificationHandler.MarkAllRead).Methods("POST")
	notifications.HandleFunc("/{id:[0-9]+}/read", notificationHandler.MarkRead).Methods("POST")

	// Account administration
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(requireAuth, middleware.RequireAdminAuth)
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/users", adminHandler.CreateUser).Methods("POST")
	admin.HandleFunc("/users/{id:[0-9]+}", adminHandler.GetUser).Methods("GET")
	admin.HandleFunc("/users/{id:[0-9]+}", adminHandler.UpdateUser).Methods("PATCH")

	// Public read-only tracking by complaint number (no auth, no citizen data)
	apiV1.HandleFunc("/public/complaints/{complaint_number}", publicHandler.TrackComplaint).Methods("GET")

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	if d.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	return router
}
