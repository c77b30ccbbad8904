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
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	_ "github.com/jhoicas/fletes-api/docs"
	"github.com/jhoicas/fletes-api/internal/application/billing"
	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
	infracfdi "github.com/jhoicas/fletes-api/internal/infrastructure/cfdi"
	"github.com/jhoicas/fletes-api/internal/infrastructure/cfdi/signer"
	"github.com/jhoicas/fletes-api/internal/infrastructure/email"
	"github.com/jhoicas/fletes-api/internal/infrastructure/facturama"
	infrapdf "github.com/jhoicas/fletes-api/internal/infrastructure/pdf"
	"github.com/jhoicas/fletes-api/internal/infrastructure/postgres"
	"github.com/jhoicas/fletes-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/fletes-api/internal/interfaces/http"
	"github.com/jhoicas/fletes-api/pkg/config"
	"github.com/jhoicas/fletes-api/pkg/logger"
	"github.com/jhoicas/fletes-api/pkg/sat"
)

// @title                       Fletes API
// @version                     1.0
// @description                 Facturación CFDI 4.0 con complemento Carta Porte para transporte de carga.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("timbrado", cfg.Stamping.Provider).
		Str("firmante", cfg.Signer.Mode).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log.Component("migraciones")); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	loadCatalogs(ctx, postgres.NewCatalogRepository(pool), log)

	cfdiSigner, err := newSigner(cfg.Signer)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar certificado de sello digital")
	}

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	documentRepo := postgres.NewCompanyDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	xmlBuilder := infracfdi.NewXMLBuilderService(cfdiSigner)
	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfdiSigner, log.Component("pdf"))
	storageClient := storage.NewAppwriteClient(cfg.Storage, cfg.Breaker, nil, log.Zerolog())
	mailer := email.NewSMTPMailer(cfg.SMTP, log.Zerolog())

	// Sin Facturama los documentos se generan con los renderers locales.
	var stamper billing.Stamper
	if cfg.Stamping.UsesFacturama() {
		stamper = facturama.NewClient(cfg.Stamping, cfg.Breaker, nil, log.Zerolog())
	}

	invoiceSvc := billing.NewInvoiceService(
		txRunner, invoiceRepo, companyRepo, documentRepo,
		xmlBuilder, pdfGenerator, storageClient, stamper, mailer,
		cfg.SMTP.FromName, log.Zerolog(),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 90,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Fletes API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Invoices:  invoiceSvc,
		JWTSecret: cfg.JWT.Secret,
		Log:       log.Component("http"),
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

// newSigner elige el firmante: simulado para desarrollo o con el CSD real.
func newSigner(cfg config.SignerConfig) (cfdi.Signer, error) {
	if cfg.Mode != config.SignerCertificate {
		return signer.NewSimulatedSigner(), nil
	}
	// Con llave separada el certificado es PEM; si no, .p12.
	p12Path, certPath := cfg.CertPath, ""
	if cfg.KeyPath != "" {
		p12Path, certPath = "", cfg.CertPath
	}
	cert, err := signer.Load(p12Path, cfg.CertPassword, certPath, cfg.KeyPath)
	if err != nil {
		return nil, err
	}
	return signer.NewCertificateSigner(cert)
}

// loadCatalogs agrega a los catálogos SAT embebidos las claves de sat_catalogos.
// Si la tabla no está disponible se sigue con los embebidos.
func loadCatalogs(ctx context.Context, repo *postgres.CatalogRepo, log *logger.Logger) {
	codes, err := repo.ListCodes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("catálogos SAT adicionales no disponibles")
		return
	}
	added := 0
	for catalog, list := range codes {
		added += sat.Extend(catalog, list...)
	}
	log.Info().Int("claves", added).Msg("catálogos SAT cargados")
}
