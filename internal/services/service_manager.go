package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/email"
	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Base URL for links embedded in outbound email (invite responses).
	PublicBaseURL string

	// Invitation expiry window; zero falls back to DefaultInviteTTL.
	InviteTTL time.Duration

	DefaultTimeout time.Duration
}

// DefaultServiceManagerConfig returns the stock configuration.
func DefaultServiceManagerConfig(publicBaseURL string) ServiceManagerConfig {
	return ServiceManagerConfig{
		PublicBaseURL:  publicBaseURL,
		InviteTTL:      DefaultInviteTTL,
		DefaultTimeout: 30 * time.Second,
	}
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	mailer    email.Mailer
	config    ServiceManagerConfig

	// Service instances
	examService         ExamService
	userService         UserService
	inviteService       InviteService
	notificationService NotificationService
	reportService       ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, mailer email.Mailer, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		mailer:    mailer,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	// Notification service first: the others depend on it for side effects.
	sm.notificationService = NewNotificationService(sm.repo, sm.db, sm.logger, sm.publisher)
	sm.logger.Info("Notification service initialized")

	sm.examService = NewExamService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher, sm.notificationService)
	sm.logger.Info("Exam service initialized")

	sm.userService = NewUserService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher, sm.notificationService)
	sm.logger.Info("User service initialized")

	sm.inviteService = NewInviteService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher, sm.notificationService, sm.mailer, sm.config.PublicBaseURL, sm.config.InviteTTL)
	sm.logger.Info("Invite service initialized")

	sm.reportService = NewReportService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Report service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// HealthCheck verifies the backing stores are reachable.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	return sm.repo.Ping(ctx)
}

// Shutdown closes the event publisher; repository connections are owned by
// the repository manager and closed there.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	return nil
}

// Service getters
func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.examService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userService
}

func (sm *serviceManager) Invite() InviteService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.inviteService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.notificationService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.reportService
}
