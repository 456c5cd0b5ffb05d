package main

import (
	"log"

	"github.com/aulahub/console/client"
	"github.com/aulahub/console/config"
	"github.com/aulahub/console/database"
	"github.com/aulahub/console/events"
	"github.com/aulahub/console/handler"
	"github.com/aulahub/console/pkg/metrics"
	"github.com/aulahub/console/repository"
	"github.com/aulahub/console/router"
	"github.com/aulahub/console/service"
	"github.com/aulahub/console/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func autoMigrate(db *gorm.DB) {
	if err := db.AutoMigrate(&repository.WizardDraft{}); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
}

func main() {
	cfg := config.LoadConfig()
	metrics.StartMetricsServer(cfg.Server.MetricsPort)

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	db := database.InitDB(cfg)
	autoMigrate(db)

	blobs, err := storage.NewMinIOStore(cfg)
	if err != nil {
		log.Fatalf("init blob store: %v", err)
	}

	drafts := repository.NewDraftRepository(db, logger)
	entities := client.NewHTTPEntityClient(cfg, logger)
	publisher := events.NewPublisher(cfg, logger)
	uploader := service.NewUploader(blobs, cfg.Uploads.Concurrency, logger)
	prober := service.NewVideoProber(cfg.Uploads.ProbeBudget, logger)

	wizard := service.NewWizardService(entities, drafts, publisher, logger)
	modules := service.NewModuleService(entities, drafts, uploader, prober, publisher, logger)
	reconcile := service.NewReconcileService(entities, drafts, publisher, logger)

	r := router.Setup(
		cfg.Auth.JWTSecret,
		handler.NewSubjectHandler(wizard),
		handler.NewModuleHandler(modules),
		handler.NewDraftHandler(reconcile, modules),
	)

	log.Printf("console listening on %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("console failed: %v", err)
	}
}
