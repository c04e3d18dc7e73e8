package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	cancelAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/cancel_appointment"
	confirmAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/confirm_appointment"
	confirmCompletionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/confirm_completion"
	contestCompletionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/contest_completion"
	createAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/create_appointment"
	escalateCompletionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/escalate_completion"
	expireAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/expire_appointments"
	generateCompletionPinHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/generate_completion_pin"
	getAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_appointment"
	getAppointmentHistoryHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_appointment_history"
	getAvailableSlotsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_available_slots"
	getClientAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_client_appointments"
	getProviderAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_provider_appointments"
	listNoShowQueueHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/list_noshow_queue"
	markArrivedHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/mark_arrived"
	recalculateNoShowRiskHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/recalculate_noshow_risk"
	rejectAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/reject_appointment"
	requestRescheduleHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/request_reschedule"
	resolveNoShowItemHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/resolve_noshow_item"
	respondRescheduleHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/respond_reschedule"
	startExecutionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/start_execution"
	startNoShowItemHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/start_noshow_item"
	updateOperationalStatusHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/update_operational_status"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/config"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
	completionRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/completion"
	noshowQueueRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/noshowqueue"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	requestServiceClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
	walletServiceClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/walletservice"
	appointmentsService "github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	completionService "github.com/m04kA/SMC-AppointmentService/internal/service/completion"
	noshowService "github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
	policyService "github.com/m04kA/SMC-AppointmentService/internal/service/policy"
	createAppointmentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
	expireAppointmentsUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/expire_appointments"
	getAvailableSlotsUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	recalculateNoShowRiskUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/recalculate_noshow_risk"
	requestRescheduleUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_reschedule"
	resolveNoShowQueueUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/resolve_noshow_queue"
	respondRescheduleUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/respond_reschedule"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

// TxManager общий интерфейс обоих transaction manager-ов
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-AppointmentService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем интеграционных клиентов
	requestClient := requestServiceClient.NewClient(
		cfg.RequestService.URL,
		time.Duration(cfg.RequestService.Timeout)*time.Second,
		log,
	)
	walletClient := walletServiceClient.NewClient(
		cfg.WalletService.URL,
		time.Duration(cfg.WalletService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (RequestService=%s, WalletService=%s)",
		cfg.RequestService.URL, cfg.WalletService.URL)

	// Kafka продюсер уведомлений; без брокеров работает как no-op
	var notifyBrokers []string
	if cfg.Notifications.Enabled {
		notifyBrokers = cfg.Notifications.Brokers
	}
	notifier := notifications.NewProducer(notifyBrokers, cfg.Notifications.Topic, log)
	defer notifier.Close()
	if cfg.Notifications.Enabled {
		log.Info("Notification producer initialized (topic=%s, brokers=%v)",
			cfg.Notifications.Topic, cfg.Notifications.Brokers)
	}

	// Табличная конфигурация финансовой политики валидируется на старте
	policyRules, err := policyService.BuildRules(cfg.Policy)
	if err != nil {
		log.Fatal("Failed to build policy rules: %v", err)
	}
	log.Info("Financial policy loaded: %d rules", len(policyRules))

	// Инициализируем репозитории и transaction manager (с метриками или без)
	var (
		apptRepository         *appointmentRepo.Repository
		availabilityRepository *availabilityRepo.Repository
		completionRepository   *completionRepo.Repository
		queueRepository        *noshowQueueRepo.Repository
		txMgr                  TxManager
	)

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		apptRepository = appointmentRepo.NewRepository(wrappedDB)
		availabilityRepository = availabilityRepo.NewRepository(wrappedDB)
		completionRepository = completionRepo.NewRepository(wrappedDB)
		queueRepository = noshowQueueRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		apptRepository = appointmentRepo.NewRepository(db)
		availabilityRepository = availabilityRepo.NewRepository(db)
		completionRepository = completionRepo.NewRepository(db)
		queueRepository = noshowQueueRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем сервисы
	noshowSvc := noshowService.NewService(
		apptRepository,
		queueRepository,
		requestClient,
		noshowService.RiskConfigFromSettings(cfg.NoShow),
		log,
	)
	policySvc := policyService.NewService(policyRules, walletClient, log)
	appointmentsSvc := appointmentsService.NewService(
		apptRepository,
		requestClient,
		policySvc,
		noshowSvc,
		notifier,
		txMgr,
		log,
	)
	completionSvc := completionService.NewService(
		completionRepository,
		apptRepository,
		noshowSvc,
		notifier,
		txMgr,
		cfg.Completion.PinTTLMinutes,
		cfg.Completion.PinMaxFailedAttempts,
		log,
	)

	// Инициализируем use cases
	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		apptRepository,
		availabilityRepository,
		requestClient,
		noshowSvc,
		notifier,
		txMgr,
		cfg.Appointments.ConfirmationSLAHours,
		log,
	)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		apptRepository,
		availabilityRepository,
		cfg.Appointments.DefaultSlotDurationMinutes,
		log,
	)
	requestRescheduleUseCase := requestRescheduleUC.NewUseCase(
		apptRepository,
		notifier,
		txMgr,
		log,
	)
	respondRescheduleUseCase := respondRescheduleUC.NewUseCase(
		apptRepository,
		noshowSvc,
		notifier,
		txMgr,
		log,
	)
	expireAppointmentsUseCase := expireAppointmentsUC.NewUseCase(
		apptRepository,
		noshowSvc,
		notifier,
		txMgr,
		cfg.Appointments.ExpireBatchSize,
		log,
	)
	recalculateNoShowRiskUseCase := recalculateNoShowRiskUC.NewUseCase(
		apptRepository,
		noshowSvc,
		txMgr,
		cfg.NoShow.RiskSweepHorizonHours,
		cfg.NoShow.RiskSweepBatchSize,
		log,
	)
	resolveNoShowQueueUseCase := resolveNoShowQueueUC.NewUseCase(
		noshowSvc,
		apptRepository,
		requestClient,
		policySvc,
		notifier,
		txMgr,
		log,
	)

	// Инициализируем handlers
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentsSvc, log)
	getAppointmentHistory := getAppointmentHistoryHandler.NewHandler(appointmentsSvc, log)
	getClientAppointments := getClientAppointmentsHandler.NewHandler(appointmentsSvc, log)
	getProviderAppointments := getProviderAppointmentsHandler.NewHandler(appointmentsSvc, log)
	confirmAppointment := confirmAppointmentHandler.NewHandler(appointmentsSvc, log)
	rejectAppointment := rejectAppointmentHandler.NewHandler(appointmentsSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(appointmentsSvc, log)
	markArrived := markArrivedHandler.NewHandler(appointmentsSvc, log)
	startExecution := startExecutionHandler.NewHandler(appointmentsSvc, log)
	updateOperationalStatus := updateOperationalStatusHandler.NewHandler(appointmentsSvc, log)
	requestReschedule := requestRescheduleHandler.NewHandler(requestRescheduleUseCase, log)
	respondReschedule := respondRescheduleHandler.NewHandler(respondRescheduleUseCase, log)
	generateCompletionPin := generateCompletionPinHandler.NewHandler(completionSvc, log)
	confirmCompletion := confirmCompletionHandler.NewHandler(completionSvc, log)
	contestCompletion := contestCompletionHandler.NewHandler(completionSvc, log)
	escalateCompletion := escalateCompletionHandler.NewHandler(completionSvc, log)
	listNoShowQueue := listNoShowQueueHandler.NewHandler(noshowSvc, log)
	startNoShowItem := startNoShowItemHandler.NewHandler(noshowSvc, log)
	resolveNoShowItem := resolveNoShowItemHandler.NewHandler(resolveNoShowQueueUseCase, log)
	expireAppointments := expireAppointmentsHandler.NewHandler(expireAppointmentsUseCase, log)
	recalculateNoShowRisk := recalculateNoShowRiskHandler.NewHandler(recalculateNoShowRiskUseCase, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")
	}

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты провайдера
	api.HandleFunc("/providers/{providerId}/available-slots",
		getAvailableSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID и X-User-Role)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// Rate limiting через Redis (если включен)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		protected.Use(middleware.RateLimit(redisClient, cfg.Redis.RateLimitPerMin, log))
		log.Info("Rate limiting enabled (%d req/min, redis=%s)", cfg.Redis.RateLimitPerMin, cfg.Redis.Addr)
	}

	// --- Жизненный цикл визита ---
	protected.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}/history", getAppointmentHistory.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}/confirm", confirmAppointment.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/reject", rejectAppointment.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/cancel", cancelAppointment.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/arrived", markArrived.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/start", startExecution.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/operational-status",
		updateOperationalStatus.Handle).Methods(http.MethodPatch)

	// --- Переговоры о переносе ---
	protected.HandleFunc("/appointments/{appointmentId}/reschedule", requestReschedule.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/reschedule/respond",
		respondReschedule.Handle).Methods(http.MethodPatch)

	// --- Подтверждение завершения ---
	protected.HandleFunc("/appointments/{appointmentId}/completion/pin",
		generateCompletionPin.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/completion/confirm",
		confirmCompletion.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/completion/contest",
		contestCompletion.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/completion/escalate",
		escalateCompletion.Handle).Methods(http.MethodPost)

	// --- Списки визитов ---
	protected.HandleFunc("/clients/{clientId}/appointments", getClientAppointments.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/providers/{providerId}/appointments",
		getProviderAppointments.Handle).Methods(http.MethodGet)

	// --- Триажная очередь no-show (операторы) ---
	protected.HandleFunc("/noshow-queue", listNoShowQueue.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/noshow-queue/{itemId}/start", startNoShowItem.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/noshow-queue/{itemId}/resolve", resolveNoShowItem.Handle).Methods(http.MethodPatch)

	// --- Системные операции (планировщик) ---
	protected.HandleFunc("/internal/appointments/expire", expireAppointments.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/internal/appointments/recalculate-risk",
		recalculateNoShowRisk.Handle).Methods(http.MethodPost)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
