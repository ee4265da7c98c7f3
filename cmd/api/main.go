package main

import (
	"context"
	"log/slog"
	"os"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/infra/stripeclient"
	"app/internal/notification"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

func main() {
	//.envは無くてもよい（本番は環境変数直渡し）
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.AuditLog{},
	); err != nil {
		log.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//usecaseに渡す部品
	pc := stripeclient.New(cfg.StripeSecretKey)
	dispatcher := notification.NewLogDispatcher(log)
	idGen := &uuidGenerator{}

	//注文単位のロックは決済とwebhookで共有する
	locks := usecase.NewOrderLocks()

	//Usecase生成
	paymentUC := usecase.NewPaymentUsecase(orderRepo, userRepo, productRepo, pc, idGen, locks, log)
	webhookUC := usecase.NewWebhookUsecase(orderRepo, pc, dispatcher, locks, log, cfg.StripeWebhookSecret, cfg.WebhookDevBypass)
	adminUC := usecase.NewAdminOrderUsecase(orderRepo, auditRepo, dispatcher, locks, log)

	//Handler生成
	paymentH := handler.NewPaymentHandler(paymentUC)
	webhookH := handler.NewWebhookHandler(webhookUC)
	orderH := handler.NewOrderHandler(paymentUC)
	adminH := handler.NewAdminOrderHandler(adminUC)

	e := server.New(cfg, paymentH, webhookH, orderH, adminH)

	ctx, cancel := server.WithSignals(context.Background())
	defer cancel()

	log.Info("starting server", slog.String("port", cfg.Port))
	if err := server.Start(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
