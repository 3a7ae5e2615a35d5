package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/beka-birhanu/vinom-arena/api"
	arenaapi "github.com/beka-birhanu/vinom-arena/api/arena"
	api_i "github.com/beka-birhanu/vinom-arena/api/i"
	"github.com/beka-birhanu/vinom-arena/api/identity"
	"github.com/beka-birhanu/vinom-arena/config"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/infrastruture/logger"
	"github.com/beka-birhanu/vinom-arena/infrastruture/repo"
	"github.com/beka-birhanu/vinom-arena/infrastruture/sortedstorage"
	"github.com/beka-birhanu/vinom-arena/infrastruture/token"
	"github.com/beka-birhanu/vinom-arena/service"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Global variables for dependencies
var (
	mongoClient         *mongo.Client
	redisClient         *redis.Client
	operatorRepo        *repo.OperatorRepo
	mazeConfigRepo      i.MazeConfigRepo
	leaderboard         *sortedstorage.RedisLeaderboard
	arenaSessionManager *service.ArenaSessionManager
	arenaController     api_i.Controller
	jwtTokenizer        i.Tokenizer
	authService         *service.Auth
	authController      api_i.Controller
	router              *api.Router
	appLogger           *logger.Logger
)

func initMongo(ctx context.Context) {
	uri := fmt.Sprintf("mongodb://%s:%v", config.Envs.DBHost, config.Envs.DBPort)
	if config.Envs.DBUser != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)
	}

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	mongoClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		os.Exit(1)
	}
	if err = mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error(fmt.Sprintf("MongoDB ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to MongoDB")
}

func initRepos(ctx context.Context, client *mongo.Client) {
	operatorRepo = repo.NewOperatorRepo(client, config.Envs.DBName, "operators")
	if err := operatorRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Warning(fmt.Sprintf("Creating operator indexes: %v", err))
	}
	mazeConfigRepo = repo.NewMazeConfigRepo(client, config.Envs.DBName, "maze_configs")
	appLogger.Info("Repositories initialized")
}

// seedMazeConfigs stores every config file of the maze directory under its
// base name.
func seedMazeConfigs(ctx context.Context) {
	entries, err := os.ReadDir(config.Envs.MazeDir)
	if err != nil {
		appLogger.Warning(fmt.Sprintf("Reading maze directory %s: %v", config.Envs.MazeDir, err))
		return
	}

	seeded := 0
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		cfg, err := mazeconfig.LoadFile(filepath.Join(config.Envs.MazeDir, e.Name()))
		if err != nil {
			appLogger.Warning(fmt.Sprintf("Skipping maze config %s: %v", e.Name(), err))
			continue
		}
		if err := mazeConfigRepo.Save(ctx, strings.TrimSuffix(e.Name(), ext), cfg); err != nil {
			appLogger.Error(fmt.Sprintf("Saving maze config %s: %v", e.Name(), err))
			continue
		}
		seeded++
	}
	appLogger.Info(fmt.Sprintf("Seeded %d maze configs from %s", seeded, config.Envs.MazeDir))
}

func initRedis(ctx context.Context) {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     config.Envs.RedisAddr,
		Password: config.Envs.RedisPassword,
		DB:       config.Envs.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to Redis")
}

func initLeaderboard(client *redis.Client) {
	var err error
	leaderboard, err = sortedstorage.NewRedisLeaderboard(client, config.Envs.LeaderboardKey, config.Envs.LeaderboardTTL)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating leaderboard: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Leaderboard initialized")
}

func initJWTTokenizer() {
	jwtTokenizer = token.NewJwtService(config.Envs.JWTSecret, config.Envs.JWTIssuer)
	appLogger.Info("JWT Tokenizer initialized")
}

func initAuthService() {
	var err error
	authService, err = service.NewAuthService(operatorRepo, jwtTokenizer, config.Envs.TokenTTL)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating auth service: %v", err))
		os.Exit(1)
	}

	if config.Envs.OperatorName != "" {
		if _, err := authService.EnsureOperator(config.Envs.OperatorName, config.Envs.OperatorSecret); err != nil {
			appLogger.Error(fmt.Sprintf("Seeding operator %s: %v", config.Envs.OperatorName, err))
			os.Exit(1)
		}
		appLogger.Info(fmt.Sprintf("Operator %s is ready", config.Envs.OperatorName))
	}
	appLogger.Info("Auth service initialized")
}

func initSessionManager() {
	arenaLogger, err := logger.New("ARENA", config.ColorCyan, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating arena logger: %v", err))
		os.Exit(1)
	}

	arenaSessionManager, err = service.NewArenaSessionManager(&service.ArenaConfig{
		Settings:     config.Envs.ArenaSettings(),
		Repo:         mazeConfigRepo,
		Board:        leaderboard,
		BoardSize:    config.Envs.LeaderboardSize,
		Logger:       arenaLogger,
		TickInterval: config.Envs.TickInterval,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating arena session manager: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Arena session manager initialized")
}

func initControllers() {
	var err error
	arenaController, err = arenaapi.NewArenaController(arenaapi.Config{
		Sessions: arenaSessionManager,
		Board:    leaderboard,
		Configs:  mazeConfigRepo,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating arena controller: %v", err))
		os.Exit(1)
	}
	authController = identity.NewIdentityServer(authService)
	appLogger.Info("Controllers initialized")
}

func initRouter(t i.Tokenizer) {
	gin.SetMode(config.Envs.GinMode)
	router = api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{authController, arenaController},
		AuthorizationMiddleware: identity.Authoriz(t),
	})
	appLogger.Info("Router initialized")
}

func serve(cmd *cobra.Command, args []string) error {
	if err := config.Envs.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	initMongo(ctx)
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	initRepos(ctx, mongoClient)
	seedMazeConfigs(ctx)

	initRedis(ctx)
	defer redisClient.Close()
	initLeaderboard(redisClient)

	initJWTTokenizer()
	initAuthService()
	initSessionManager()
	defer arenaSessionManager.StopAll()
	initControllers()
	initRouter(jwtTokenizer)

	errs := make(chan error, 1)
	go func() {
		errs <- router.Run()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("starting server: %w", err)
	case sig := <-stop:
		appLogger.Info(fmt.Sprintf("Received %s, shutting down", sig))
		return nil
	}
}

func main() {
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)

	rootCmd := &cobra.Command{
		Use:           "vinom-arena",
		Short:         "Multi-agent maze arena controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the arena control API",
		RunE:  serve,
	}

	rootCmd.AddCommand(serveCmd, newRunCmd(), newHashSecretCmd(), newTokenCmd())
	if err := rootCmd.Execute(); err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}
}
