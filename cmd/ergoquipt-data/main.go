package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ergoquipt-data/internal/config"
	"ergoquipt-data/internal/database"
	"ergoquipt-data/internal/domain"
	httpapi "ergoquipt-data/internal/http"
	"ergoquipt-data/internal/logger"
	"ergoquipt-data/internal/repository"
	"ergoquipt-data/internal/service"
	"ergoquipt-data/internal/token"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "ergoquipt-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var (
		usersRepo       repository.UsersRepository
		respondentsRepo repository.RespondentsRepository
		sessionsRepo    repository.SessionsRepository
		trialsRepo      repository.TrialsRepository
	)

	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Warn("DB enabled but connection failed, falling back to in-memory storage", zap.Error(err))
		} else {
			defer database.Close(db)
			usersRepo = repository.NewPostgresUsersRepository(db)
			respondentsRepo = repository.NewPostgresRespondentsRepository(db)
			sessionsRepo = repository.NewPostgresSessionsRepository(db)
			trialsRepo = repository.NewPostgresTrialsRepository(db)
			log.Info("DB enabled for ergoquipt-data",
				zap.String("host", cfg.Database.Host),
				zap.String("database", cfg.Database.Database),
			)
		}
	}
	if usersRepo == nil {
		memUsers := repository.NewMemoryUsersRepository()
		memSessions := repository.NewMemorySessionsRepository(memUsers)
		usersRepo = memUsers
		respondentsRepo = repository.NewMemoryRespondentsRepository()
		sessionsRepo = memSessions
		trialsRepo = repository.NewMemoryTrialsRepository(memSessions)
		log.Info("Using in-memory storage")
	}

	if os.Getenv("SEED_ADMIN") != "false" {
		seedSuperAdmin(log, usersRepo, cfg.Seed)
	}

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)

	authService := service.NewAuthService(usersRepo, tokens, log)
	userService := service.NewUserService(usersRepo, log)
	respondentService := service.NewRespondentService(respondentsRepo, log)
	sessionService := service.NewSessionService(sessionsRepo, respondentsRepo, log)
	trialService := service.NewTrialService(trialsRepo, sessionsRepo, log)
	exportService := service.NewExportService(sessionsRepo, trialsRepo, usersRepo, respondentsRepo, log)

	authMiddleware := httpapi.NewAuthMiddleware(tokens, usersRepo, log)
	router := httpapi.NewRouter(authMiddleware, httpapi.Handlers{
		Auth:        httpapi.NewAuthHandler(authService, log),
		AdminUsers:  httpapi.NewAdminUsersHandler(userService, log),
		Respondents: httpapi.NewRespondentsHandler(respondentService, log),
		Sessions:    httpapi.NewSessionsHandler(sessionService, log),
		Trials:      httpapi.NewTrialsHandler(trialService, log),
		Export:      httpapi.NewExportHandler(exportService, log),
	}, log)

	server := service.NewServer(cfg.HTTP.Addr, router, log)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
	log.Info("ergoquipt-data stopped")
}

// seedSuperAdmin ensures the bootstrap super admin exists so a fresh deployment
// has a working login. The account is created active with a rotated password so
// it is not forced through the first-login flow.
func seedSuperAdmin(log *zap.Logger, usersRepo repository.UsersRepository, seed config.SeedConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := usersRepo.GetUserByUsername(ctx, seed.AdminUsername); err == nil {
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Warn("Super admin seed check failed", zap.Error(err))
		return
	}

	hash, err := service.HashPassword(seed.AdminPassword)
	if err != nil {
		log.Warn("Super admin seed failed", zap.Error(err))
		return
	}

	adminID, err := usersRepo.CreateUser(ctx, &domain.User{
		Username:         seed.AdminUsername,
		Email:            seed.AdminEmail,
		PasswordHash:     hash,
		FullName:         "System Administrator",
		Role:             domain.RoleSuperAdmin,
		Status:           domain.UserStatusActive,
		RegistrationType: domain.RegistrationSelfRegistered,
		InitialPassword:  false,
		PlatformAccess:   domain.PlatformBoth,
	}, nil)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return
		}
		log.Warn("Super admin seed failed", zap.Error(err))
		return
	}
	log.Info("Seeded super admin account",
		zap.String("user_id", adminID),
		zap.String("username", seed.AdminUsername),
	)
}
