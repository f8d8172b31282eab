package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"qbridge/internal/config"
	"qbridge/internal/connection"
	noopmail "qbridge/internal/email/noop"
	sesmail "qbridge/internal/email/ses"
	"qbridge/internal/handler"
	"qbridge/internal/port"
	"qbridge/internal/qbo"
	"qbridge/internal/router"
	"qbridge/internal/service"
	s3storage "qbridge/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Optional; real deployments inject env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg.Log)

	store := connection.NewStore()

	var clientOpts []qbo.Option
	if cfg.QBO.APIBaseURL != "" {
		clientOpts = append(clientOpts, qbo.WithBaseURL(cfg.QBO.APIBaseURL))
	}
	qboClient := qbo.NewClient(logger, clientOpts...)
	authorizer := qbo.NewAuthorizer(cfg.QBO.ClientID, cfg.QBO.ClientSecret, cfg.QBO.PublicURL, cfg.QBO.StateSecret)

	// Export archiving is optional; with no bucket configured the exports
	// are streamed to the caller only.
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	var emailSender port.EmailSender
	if cfg.Email.Provider == "ses" {
		emailSender, err = sesmail.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	} else {
		emailSender = noopmail.NewNoopSender(logger)
	}

	taxSvc := service.NewTaxService(qboClient)
	attachmentSvc := service.NewAttachmentService(store, qboClient, emailSender, cfg.Copy.ReportEmail, logger)
	allocationSvc := service.NewAllocationService(qboClient)
	overpaymentSvc := service.NewOverpaymentService(qboClient, logger)
	exportSvc := service.NewExportService(qboClient, taxSvc, allocationSvc, overpaymentSvc, storage, cfg.S3.Bucket, cfg.S3.PresignExpiry, logger)

	handlers := router.Handlers{
		Health:      handler.NewHealthHandler(),
		Connect:     handler.NewConnectHandler(store, authorizer, qboClient, logger),
		Extract:     handler.NewExtractHandler(store, qboClient, taxSvc, logger),
		Attachments: handler.NewAttachmentHandler(attachmentSvc, logger),
		Exports:     handler.NewExportHandler(store, exportSvc, logger),
	}

	r := router.Setup(handlers, cfg.CORS.AllowedOrigins, logger)

	logger.WithField("port", cfg.Server.Port).Info("server starting")
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
