package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"courtside/internal/adapter/api"
	"courtside/internal/adapter/api/handler"
	apimiddleware "courtside/internal/adapter/api/middleware"
	"courtside/internal/adapter/api/router"
	"courtside/internal/adapter/repository"
	"courtside/internal/adapter/repository/memory"
	domainrepo "courtside/internal/domain/repository"
	"courtside/internal/infrastructure/firebase"
	"courtside/internal/infrastructure/gif"
	"courtside/internal/infrastructure/metrics"
	"courtside/internal/infrastructure/prefs"
	"courtside/internal/infrastructure/ratelimit"
	"courtside/internal/infrastructure/retention"
	"courtside/internal/infrastructure/storage"
	"courtside/internal/infrastructure/websocket"
	"courtside/internal/live"
	"courtside/internal/usecase"
	"courtside/pkg/config"
	"courtside/pkg/logger"
)

type repositories struct {
	users         domainrepo.UserRepository
	conversations domainrepo.ConversationRepository
	messages      domainrepo.MessageRepository
	typing        domainrepo.TypingRepository
	notifications domainrepo.NotificationRepository
	courts        domainrepo.CourtRepository
}

type authProvider interface {
	apimiddleware.TokenVerifier
	usecase.TokenRevoker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(nil)
	live.SetObserver(collector)
	usecase.SetMetrics(collector)

	limiter := ratelimit.NewRateLimiter()
	limiter.SetPolicy(ratelimit.ActionSendMessage, ratelimit.Policy{PerSecond: cfg.SendRatePerSec, Burst: cfg.SendBurst})
	limiter.SetPolicy(ratelimit.ActionTyping, ratelimit.Policy{PerSecond: cfg.TypingRatePerSec, Burst: cfg.TypingBurst})
	limiter.StartCleanupRoutine(ctx)

	var (
		repos      repositories
		auth       authProvider
		devAuth    *firebase.DevAuth
		avatars    usecase.AvatarResolver
		identities usecase.IdentityLookup
	)

	switch cfg.StoreDriver {
	case config.StoreMemory:
		if !cfg.IsDevelopment() {
			logger.Error("The memory store driver is only available in development")
			os.Exit(1)
		}
		logger.Warn("Using the in-memory store; data is lost on restart")
		store := memory.NewStore()
		repos = repositories{
			users:         memory.NewUserRepository(store),
			conversations: memory.NewConversationRepository(store),
			messages:      memory.NewMessageRepository(store),
			typing:        memory.NewTypingRepository(store),
			notifications: memory.NewNotificationRepository(store),
			courts:        memory.NewCourtRepository(store),
		}
		devAuth = firebase.NewDevAuth()
		auth = devAuth

	default:
		opts, credentialsPath := credentialsOptions()

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			logger.Error("Failed to initialize Firebase: %v", err)
			os.Exit(1)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Error("Failed to initialize Firebase Auth: %v", err)
			os.Exit(1)
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			logger.Error("Failed to create Firestore client: %v", err)
			os.Exit(1)
		}
		defer firestoreClient.Close()

		repos = repositories{
			users:         repository.NewFirestoreUserRepository(firestoreClient),
			conversations: repository.NewFirestoreConversationRepository(firestoreClient),
			messages:      repository.NewFirestoreMessageRepository(firestoreClient),
			typing:        repository.NewFirestoreTypingRepository(firestoreClient),
			notifications: repository.NewFirestoreNotificationRepository(firestoreClient),
			courts:        repository.NewFirestoreCourtRepository(firestoreClient),
		}
		firebaseAuth := firebase.NewFirebaseAuthClient(authClient)
		auth = firebaseAuth
		identities = firebaseAuth

		if cfg.StorageBucket != "" {
			storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
			if err != nil {
				logger.Warn("Cloud Storage unavailable, profile images are served as stored: %v", err)
			} else {
				defer storageClient.Close()
				avatars = storageClient
			}
		}
	}

	flags, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		logger.Error("Failed to open preferences store at %s: %v", cfg.PrefsPath, err)
		os.Exit(1)
	}
	defer flags.Close()

	userUseCase := usecase.NewUserUseCase(repos.users, avatars, identities)
	conversationUseCase := usecase.NewConversationUseCase(repos.conversations, repos.users, limiter, avatars)
	messageUseCase := usecase.NewMessageUseCase(repos.messages, repos.conversations, repos.courts, repos.users, limiter)
	typingUseCase := usecase.NewTypingUseCase(repos.typing, repos.conversations, limiter)
	notificationUseCase := usecase.NewNotificationUseCase(repos.notifications, cfg.NotificationTTL)
	reactionUseCase := usecase.NewReactionUseCase(repos.messages, repos.conversations, repos.courts, repos.users, notificationUseCase, limiter)
	courtUseCase := usecase.NewCourtUseCase(repos.courts)

	syncService := usecase.NewSyncService(
		conversationUseCase,
		messageUseCase,
		typingUseCase,
		reactionUseCase,
		notificationUseCase,
		repos.conversations,
		repos.courts,
		repos.notifications,
		cfg.BannerDuration,
	)
	sessions := usecase.NewSessionRegistry(auth)

	wsManager := websocket.NewManager(syncService)
	wsManager.Start(ctx)

	retentionJob, err := retention.NewJob(cfg.RetentionCron, notificationUseCase)
	if err != nil {
		logger.Error("Failed to schedule notification retention: %v", err)
		os.Exit(1)
	}
	retentionJob.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("%s %s %d %s", v.Method, v.URIPath, v.Status, v.Latency)
			return nil
		},
	}))
	e.Validator = api.NewValidator()

	handlers := router.Handlers{
		Conversation: handler.NewConversationHandler(conversationUseCase),
		Message:      handler.NewMessageHandler(messageUseCase, reactionUseCase),
		Notification: handler.NewNotificationHandler(notificationUseCase),
		Court:        handler.NewCourtHandler(courtUseCase),
		Gif:          handler.NewGifHandler(gif.NewClient(cfg.GifAPIKey, cfg.GifBaseURL, cfg.GifLimit)),
		User:         handler.NewUserHandler(userUseCase, flags),
		Auth:         handler.NewAuthHandler(sessions, flags),
		WebSocket:    handler.NewWebSocketHandler(wsManager, sessions, userUseCase, nil),
		Health:       handler.NewHealthHandler(wsManager, retentionJob),
		Metrics:      collector.Handler(),
	}
	if devAuth != nil {
		handlers.DevToken = handler.NewDevTokenHandler(devAuth)
	}
	router.Setup(e, handlers, apimiddleware.NewAuthMiddleware(auth), limiter)

	go func() {
		logger.Info("Starting server on port %s (store: %s)...", cfg.ServerPort, cfg.StoreDriver)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

// credentialsOptions picks the service account from FIREBASE_SERVICE_ACCOUNT_JSON
// (production) or the file at FIREBASE_SERVICE_ACCOUNT_PATH. Without either,
// application default credentials are used. The path is returned for clients
// that need it separately.
func credentialsOptions() ([]option.ClientOption, string) {
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(serviceAccountJSON))}, ""
	}

	if path := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			logger.Error("Service account file does not exist: %s", path)
			os.Exit(1)
		}
		logger.Info("Using Firebase service account from file: %s", path)
		return []option.ClientOption{option.WithCredentialsFile(path)}, path
	}

	logger.Info("Using application default credentials")
	return nil, ""
}
