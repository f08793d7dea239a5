package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eems-edu/examiner-service/internal/cache"
	"github.com/eems-edu/examiner-service/internal/config"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/services"
	"github.com/eems-edu/examiner-service/internal/utils"
)

type HandlerManager struct {
	examHandler         *ExamHandler
	userHandler         *UserHandler
	inviteHandler       *InviteHandler
	notificationHandler *NotificationHandler
	reportHandler       *ReportHandler
	authMiddleware      *CasdoorAuthMiddleware
	csrfMiddleware      *CSRFMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
	cacheManager *cache.CacheManager,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	examHandler := NewExamHandler(serviceManager.Exam(), logger)
	inviteHandler := NewInviteHandler(serviceManager.Invite(), logger)

	return &HandlerManager{
		examHandler:         examHandler,
		userHandler:         NewUserHandler(serviceManager.User(), logger),
		inviteHandler:       inviteHandler,
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), logger),
		reportHandler:       NewReportHandler(serviceManager.Report(), examHandler, inviteHandler, logger),
		authMiddleware:      authMiddleware,
		csrfMiddleware:      NewCSRFMiddleware(cacheManager.CSRF, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Token-keyed public invitation endpoints. The token is the credential;
	// no session, no CSRF.
	public := router.Group("/invites")
	{
		public.GET("/:token", hm.inviteHandler.GetInviteByToken)
		public.POST("/:token/respond", hm.inviteHandler.RespondInvite)
	}

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	v1.Use(hm.csrfMiddleware.Middleware())
	{
		v1.GET("/csrf", hm.csrfMiddleware.IssueToken)

		// Registration and own profile are reachable before verification
		v1.POST("/users/register", hm.userHandler.RegisterUser)
		v1.GET("/users/me", hm.userHandler.GetProfile)
		v1.PUT("/users/me", hm.userHandler.UpdateProfile)

		// Everything below requires a verified registration
		registered := v1.Group("")
		registered.Use(hm.authMiddleware.RequireRegisteredMiddleware())
		{
			// Exam routes
			exams := registered.Group("/exams")
			{
				exams.POST("", hm.examHandler.CreateExam)
				exams.GET("", hm.examHandler.ListExams)
				exams.GET("/visible", hm.examHandler.GetVisibleExams)
				exams.GET("/:id", hm.examHandler.GetExam)
				exams.GET("/:id/details", hm.examHandler.GetExamWithDetails)
				exams.PUT("/:id", hm.examHandler.UpdateExam)
				exams.DELETE("/:id", hm.examHandler.DeleteExam)

				// Approval workflow - coordinators only
				exams.PUT("/:id/review", hm.authMiddleware.RequireCoordinatorMiddleware(), hm.examHandler.ReviewExam)

				// Examiner assignment
				exams.POST("/:id/examiners", hm.examHandler.AssignExaminer)
				exams.DELETE("/:id/examiners/:user_id", hm.examHandler.UnassignExaminer)
			}

			// User directory and verification routes
			users := registered.Group("/users")
			{
				users.GET("", hm.userHandler.ListUsers)
				users.GET("/:id", hm.userHandler.GetUser)
				users.PUT("/:id/review", hm.authMiddleware.RequireCoordinatorMiddleware(), hm.userHandler.ReviewUser)
				users.DELETE("/:id", hm.authMiddleware.RequireCoordinatorMiddleware(), hm.userHandler.DeleteUser)
			}

			// Invitation routes (owner side)
			invites := registered.Group("/invites")
			{
				invites.POST("", hm.inviteHandler.CreateInvite)
				invites.GET("", hm.inviteHandler.ListInvites)
				invites.GET("/:id", hm.inviteHandler.GetInvite)
			}

			// Notification routes
			notifications := registered.Group("/notifications")
			{
				notifications.GET("", hm.notificationHandler.ListNotifications)
				notifications.GET("/unread", hm.notificationHandler.GetUnreadCount)
				notifications.PUT("/:id/read", hm.notificationHandler.MarkRead)
				notifications.PUT("/read-all", hm.notificationHandler.MarkAllRead)
			}

			// Report routes
			reports := registered.Group("/reports")
			{
				reports.GET("/dashboard", hm.reportHandler.GetDashboardStats)

				// Exports - HODs and above
				reports.GET("/exams.xlsx", hm.authMiddleware.RequireRoleMiddleware(
					models.RoleHOD, models.RolePrincipal, models.RoleVicePrincipal), hm.reportHandler.ExportExams)
				reports.GET("/invites.xlsx", hm.authMiddleware.RequireRoleMiddleware(
					models.RoleHOD, models.RolePrincipal, models.RoleVicePrincipal), hm.reportHandler.ExportInvites)
			}
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "examiner-service",
		})
	})
}
