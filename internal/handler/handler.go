package handler

import (
	"github.com/tenantry/tenantry/internal/config"
	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	db          *database.Postgres
	rdb         *database.Redis
	log         *logger.Logger
	cfg         *config.Config
	authSvc     *service.AuthService
	sessionSvc  *service.SessionService
	loginLogSvc *service.LoginLogService
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, sessionSvc *service.SessionService, loginLogSvc *service.LoginLogService) *Handler {
	return &Handler{
		db:          db,
		rdb:         rdb,
		log:         log,
		cfg:         cfg,
		authSvc:     authSvc,
		sessionSvc:  sessionSvc,
		loginLogSvc: loginLogSvc,
	}
}
