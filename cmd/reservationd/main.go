package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/config"
	"github.com/marxist91/reservation-backend-sub001/internal/database"
	httpapi "github.com/marxist91/reservation-backend-sub001/internal/http"
	"github.com/marxist91/reservation-backend-sub001/internal/logger"
	"github.com/marxist91/reservation-backend-sub001/internal/mqtt"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
	"github.com/marxist91/reservation-backend-sub001/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "reservation-backend")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Cache: Redis when reachable, in-process otherwise. Only advisory
	// data goes through it.
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	} else {
		kv = store.NewMemoryKV()
	}

	// Storage: Postgres when enabled and reachable, in-memory fallback for
	// local development.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for reservation backend")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}

	var (
		usersRepo        repository.UsersRepository
		roomsRepo        repository.RoomsRepository
		departmentsRepo  repository.DepartmentsRepository
		reservationsRepo repository.ReservationsRepository
		auditRepo        repository.AuditLogsRepository
		notifRepo        repository.NotificationsRepository
		settingsRepo     repository.SettingsRepository
	)
	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Fatal("Failed to ensure database schema", zap.Error(err))
		}
		cancel()

		usersRepo = repository.NewPostgresUsersRepository(db)
		roomsRepo = repository.NewPostgresRoomsRepository(db)
		departmentsRepo = repository.NewPostgresDepartmentsRepository(db)
		reservationsRepo = repository.NewPostgresReservationsRepository(db)
		auditRepo = repository.NewPostgresAuditLogsRepository(db)
		notifRepo = repository.NewPostgresNotificationsRepository(db)
		settingsRepo = repository.NewPostgresSettingsRepository(db)
	} else {
		memRooms := repository.NewMemoryRoomsRepo()
		memReservations := repository.NewMemoryReservationsRepo()
		memAudits := repository.NewMemoryAuditLogsRepo()
		memRooms.AttachReservations(memReservations)
		memReservations.AttachAudits(memAudits)

		usersRepo = repository.NewMemoryUsersRepo()
		roomsRepo = memRooms
		departmentsRepo = repository.NewMemoryDepartmentsRepo()
		reservationsRepo = memReservations
		auditRepo = memAudits
		notifRepo = repository.NewMemoryNotificationsRepo()
		settingsRepo = repository.NewMemorySettingsRepo()
	}

	// Optional event fan-out: webhook sink and MQTT topic.
	var publishers []service.EventPublisher
	if cfg.Webhook.URL != "" {
		publishers = append(publishers, service.NewWebhookClient(
			cfg.Webhook.URL,
			time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
			log,
		))
		log.Info("Webhook event forwarding enabled", zap.String("url", cfg.Webhook.URL))
	}
	var mqttPub *mqtt.Publisher
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		}, log)
		if err != nil {
			log.Warn("MQTT publisher disabled, connect failed", zap.Error(err))
		} else {
			mqttPub = pub
			publishers = append(publishers, pub)
			log.Info("MQTT event publishing enabled", zap.String("broker", cfg.MQTT.Broker))
		}
	}

	auditSvc := service.NewAuditService(auditRepo, usersRepo, log)
	notificationSvc := service.NewNotificationService(notifRepo, publishers, log)
	settingSvc := service.NewSettingService(settingsRepo, usersRepo, auditSvc, kv, log)
	userSvc := service.NewUserService(usersRepo, log)
	roomSvc := service.NewRoomService(roomsRepo, usersRepo, log)
	departmentSvc := service.NewDepartmentService(departmentsRepo, usersRepo, log)
	reservationSvc := service.NewReservationService(
		reservationsRepo, roomsRepo, usersRepo, departmentsRepo,
		settingSvc, notificationSvc, auditSvc, log,
	)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterReservationRoutes(httpapi.NewReservationHandler(reservationSvc, log))
	router.RegisterRoomRoutes(httpapi.NewRoomHandler(roomSvc, log))
	router.RegisterUserRoutes(httpapi.NewUserHandler(userSvc, log))
	router.RegisterDepartmentRoutes(httpapi.NewDepartmentHandler(departmentSvc, log))
	router.RegisterNotificationRoutes(httpapi.NewNotificationHandler(notificationSvc, log))
	router.RegisterSettingsRoutes(httpapi.NewSettingHandler(settingSvc, log))
	router.RegisterAuditRoutes(httpapi.NewAuditHandler(auditSvc, log))
	router.RegisterReportRoutes(httpapi.NewReportHandler(reservationSvc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttPub != nil {
		mqttPub.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
