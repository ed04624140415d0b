package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/jhoicas/nfe-fiscal/docs"
	appanalytics "github.com/jhoicas/nfe-fiscal/internal/application/analytics"
	"github.com/jhoicas/nfe-fiscal/internal/application/auth"
	"github.com/jhoicas/nfe-fiscal/internal/application/usecase"
	"github.com/jhoicas/nfe-fiscal/internal/domain/calculator"
	"github.com/jhoicas/nfe-fiscal/internal/domain/repository"
	"github.com/jhoicas/nfe-fiscal/internal/domain/validation"
	infrapdf "github.com/jhoicas/nfe-fiscal/internal/infrastructure/pdf"
	"github.com/jhoicas/nfe-fiscal/internal/infrastructure/postgres"
	"github.com/jhoicas/nfe-fiscal/internal/infrastructure/ratetable"
	httpRouter "github.com/jhoicas/nfe-fiscal/internal/interfaces/http"
	"github.com/jhoicas/nfe-fiscal/pkg/config"
	"github.com/jhoicas/nfe-fiscal/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	clients, err := auth.ParseClients(cfg.Auth.Clients)
	if err != nil {
		log.Fatal().Err(err).Msg("AUTH_CLIENTS")
	}
	authUC := auth.NewAuthUseCase(clients, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	log.Info().Int("clients", len(clients)).Msg("clientes de API configurados")

	rates, err := ratetable.Load(cfg.Fiscal.RatesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("tabla de alícuotas")
	}
	log.Info().Str("version", rates.Version()).Str("file", cfg.Fiscal.RatesFile).Msg("tabla de alícuotas cargada")

	opts := []usecase.FiscalOption{
		usecase.WithRenderer(infrapdf.NewMarotoReportRenderer()),
		usecase.WithShardSize(cfg.Fiscal.BatchShardSize),
		usecase.WithLogger(log.WithComponent("fiscal")),
	}

	// Persistencia opcional: sin DB (o si no responde) el servicio valida y calcula sin guardar.
	var analysisRepo repository.AnalysisRepository
	ctx := context.Background()
	if pool := connectDB(ctx, cfg, log); pool != nil {
		defer pool.Close()
		repo := postgres.NewAnalysisRepository(pool)
		analysisRepo = repo
		opts = append(opts, usecase.WithPersistence(repo, postgres.NewTxRunner(pool)))
	}

	fiscalUC := usecase.NewFiscalUseCase(validation.NewValidator(rates), calculator.NewCalculator(rates), opts...)
	dashboardUC := appanalytics.NewDashboardUseCase(analysisRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "NF-e Fiscal API",
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger.json no encontrado; /docs deshabilitado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		FiscalUC:    fiscalUC,
		DashboardUC: dashboardUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
		AppName:     cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// connectDB abre el pool y aplica migraciones. Devuelve nil si la persistencia
// está deshabilitada o la base no está disponible.
func connectDB(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	if !cfg.DB.Enabled {
		log.Info().Msg("DB_ENABLED=false: modo sin estado")
		return nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL; se continúa sin persistencia")
		return nil
	}
	if err := postgres.Migrate(connectCtx, pool); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("migraciones; se continúa sin persistencia")
		return nil
	}
	log.Info().Msg("persistencia de análisis habilitada")
	return pool
}
