package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"barplexity/internal/config"
	"barplexity/internal/model"
	mysqlClient "barplexity/internal/platform/mysql"
	redisClient "barplexity/internal/platform/redis"
	"barplexity/internal/repository"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client

	StartedAt time.Time
}

func New(ctx context.Context, log *zap.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.ChatSession{}, &model.Chat{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		return nil, err
	}

	if err := seedAdmin(cfg, mysqlDB, log); err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Log:       log,
		MySQL:     mysqlDB,
		Redis:     redisCli,
		StartedAt: time.Now(),
	}, nil
}

// seedAdmin makes sure the configured admin account exists. Skipped when the
// email is already registered or no admin password is configured.
func seedAdmin(cfg *config.Config, db *gorm.DB, log *zap.Logger) error {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		log.Warn("admin seeding skipped, no admin credentials configured")
		return nil
	}

	userRepo := repository.NewUserRepository(db)
	existing, err := userRepo.GetByEmail(cfg.Admin.Email)
	if err != nil {
		return fmt.Errorf("lookup admin user failed: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password failed: %w", err)
	}

	admin := &model.User{
		Name:         cfg.Admin.Name,
		Email:        cfg.Admin.Email,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := userRepo.Create(admin); err != nil {
		return fmt.Errorf("seed admin user failed: %w", err)
	}

	log.Info("admin user seeded", zap.Uint("user_id", admin.ID))
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
