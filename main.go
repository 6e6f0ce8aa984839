package main

import (
	"context"
	"time"

	"github.com/cppla/anonbbs/attachments"
	"github.com/cppla/anonbbs/config"
	"github.com/cppla/anonbbs/models"
	"github.com/cppla/anonbbs/repository"
	"github.com/cppla/anonbbs/routes"
	"github.com/cppla/anonbbs/service"
	"github.com/cppla/anonbbs/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg, &models.Post{})

	board := service.NewBoardService(
		repository.NewPostRepository(db),
		attachments.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix, cfg.MaxUploadBytes),
		service.WithValidator(attachments.NewValidator(cfg.MaxUploadBytes)),
		service.WithPageSize(cfg.PageSize),
		service.WithStrictAttachments(cfg.StrictAttachments),
		service.WithLogger(utils.Logger),
	)

	r := routes.SetupRouter(board, cfg)

	// Start background cleanup for orphaned uploads (best-effort)
	utils.StartUploadCleaner(context.Background(), 5*time.Minute, func(ctx context.Context) (int, error) {
		return board.SweepOrphanUploads(ctx, 10*time.Minute)
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
