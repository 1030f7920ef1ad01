package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/kantei/internal/appraisal"
	"github.com/wonny/kantei/internal/coefficients"
	"github.com/wonny/kantei/pkg/config"
	"github.com/wonny/kantei/pkg/database"
	"github.com/wonny/kantei/pkg/logger"
	"github.com/wonny/kantei/pkg/notify"
	"github.com/wonny/kantei/pkg/redis"
)

// app 명령 공통 의존성
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	tables   *coefficients.Tables
	pipeline *appraisal.Pipeline
	db       *database.DB // openRepository 이후, 미설정이면 nil
}

// loadApp config → logger → 계수 테이블 → 파이프라인. 테이블 오류는 치명적
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cfg)

	log := logger.New(cfg)

	tables, err := coefficients.Load(coefficients.Options{
		DataDir:         cfg.Engine.CoefficientDir,
		CalibrationPath: cfg.Engine.CalibrationPath,
		LoanProfile:     cfg.Engine.LoanProfile,
		GradeScheme:     cfg.Engine.GradeScheme,
	}, log.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("load coefficient tables: %w", err)
	}

	pipeline, err := appraisal.NewPipeline(tables, cfg.Engine.AsOfYear, log.Zerolog())
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, tables: tables, pipeline: pipeline}, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if coefficientDir != "" {
		cfg.Engine.CoefficientDir = coefficientDir
	}
	if calibrationPath != "" {
		cfg.Engine.CalibrationPath = calibrationPath
	}
	if loanProfile != "" {
		cfg.Engine.LoanProfile = loanProfile
	}
	if gradeScheme != "" {
		cfg.Engine.GradeScheme = gradeScheme
	}
	if asOfYear > 0 {
		cfg.Engine.AsOfYear = asOfYear
	}
}

// openRepository DATABASE_URL 미설정이면 (nil, nil)
func (a *app) openRepository(ctx context.Context) (*appraisal.Repository, func(), error) {
	db, err := database.New(a.cfg)
	if errors.Is(err, database.ErrNotConfigured) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	a.log.Info("Connected to database")
	a.db = db
	return appraisal.NewRepository(db.Pool), db.Close, nil
}

// openPublisher NATS_URL 미설정이면 no-op 퍼블리셔
func (a *app) openPublisher() (*notify.Publisher, error) {
	pub, err := notify.NewPublisher(a.cfg, a.log.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return pub, nil
}

// openRedis REDIS_ENABLED=false 면 비활성 클라이언트
func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
