package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	HostIP   string // Host IP for the server
	RESTPort int    // Port for the REST API
	GinMode  string // Mode for the Gin framework (e.g., release, debug, test)

	DBHost     string // Hostname or IP address for the database
	DBPort     int    // Port number for the database
	DBUser     string // Username for the database
	DBPassword string // Password for the database
	DBName     string // Name of the database

	RedisAddr       string        // host:port of the leaderboard Redis
	RedisPassword   string        // Password for Redis, empty when none
	RedisDB         int           // Redis logical database
	LeaderboardKey  string        // Sorted set holding episode results
	LeaderboardTTL  time.Duration // Expiry of the leaderboard set
	LeaderboardSize int64         // Best episodes kept, 0 keeps all

	JWTSecret      string        // Secret key for JWT signing
	JWTIssuer      string        // Issuer claim for JWTs
	TokenTTL       time.Duration // Lifetime of operator tokens
	OperatorName   string        // Operator seeded at startup when set
	OperatorSecret string        // Secret of the seeded operator

	TickInterval time.Duration // Cadence of autoplayed arenas
	MazeDir      string        // Directory scanned for maze config files

	ArenaSeed         int64   // -1 leaves arenas unseeded
	ArenaMaxSteps     int     // Step budget per episode, 0 disables it
	ArenaMode         string  // Decentralized or Cooperative
	ArenaGridMovement bool    // Move agents cell by cell
	ArenaRoles        string  // flags, random or round-robin
	ArenaRolesProb    float64 // Probability of the active role for random roles
	ArenaBackupFile   string  // Backup config written on the first reset
	ArenaSaveBackup   bool    // Whether to write the backup config
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig initializes and returns the application configuration.
// It loads environment variables from a .env file.
func initConfig() Config {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	defaults := game.DefaultSettings()
	return Config{
		HostIP:   getEnvWithDefault("HOST_IP", "0.0.0.0"),
		RESTPort: getEnvAsIntWithDefault("REST_PORT", 8080),
		GinMode:  getEnvWithDefault("GIN_MODE", "release"),

		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvAsIntWithDefault("DB_PORT", 27017),
		DBUser:     getEnvWithDefault("DB_USER", ""),
		DBPassword: getEnvWithDefault("DB_PASS", ""),
		DBName:     getEnvWithDefault("DB_NAME", "vinom_arena"),

		RedisAddr:       getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnvWithDefault("REDIS_PASS", ""),
		RedisDB:         getEnvAsIntWithDefault("REDIS_DB", 0),
		LeaderboardKey:  getEnvWithDefault("LEADERBOARD_KEY", "arena:episodes"),
		LeaderboardTTL:  getEnvAsDurationWithDefault("LEADERBOARD_TTL", 24*time.Hour),
		LeaderboardSize: int64(getEnvAsIntWithDefault("LEADERBOARD_SIZE", 1000)),

		JWTSecret:      getEnvWithDefault("JWT_SECRET", ""),
		JWTIssuer:      getEnvWithDefault("JWT_ISSUER", "vinom-arena"),
		TokenTTL:       getEnvAsDurationWithDefault("TOKEN_TTL", 24*time.Hour),
		OperatorName:   getEnvWithDefault("OPERATOR_NAME", ""),
		OperatorSecret: getEnvWithDefault("OPERATOR_SECRET", ""),

		TickInterval: getEnvAsDurationWithDefault("TICK_INTERVAL", 20*time.Millisecond),
		MazeDir:      getEnvWithDefault("MAZE_DIR", "./configs/maps"),

		ArenaSeed:         int64(getEnvAsIntWithDefault("ARENA_SEED", int(defaults.Seed))),
		ArenaMaxSteps:     getEnvAsIntWithDefault("ARENA_MAX_STEPS", defaults.MaxEnvironmentSteps),
		ArenaMode:         getEnvWithDefault("ARENA_MODE", defaults.Mode.String()),
		ArenaGridMovement: getEnvAsBoolWithDefault("ARENA_GRID_MOVEMENT", defaults.UseGridMovement),
		ArenaRoles:        getEnvWithDefault("ARENA_ROLES", "flags"),
		ArenaRolesProb:    getEnvAsFloatWithDefault("ARENA_ROLES_PROB", defaults.DifferentiateRolesProb),
		ArenaBackupFile:   getEnvWithDefault("ARENA_BACKUP_FILE", defaults.BackupConfigFile),
		ArenaSaveBackup:   getEnvAsBoolWithDefault("ARENA_SAVE_BACKUP", false),
	}
}

// Validate reports settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.RESTPort <= 0 {
		return errors.New("REST_PORT must be positive")
	}
	return nil
}

// ArenaSettings overlays the arena section of c on the default settings.
func (c Config) ArenaSettings() game.Settings {
	s := game.DefaultSettings()
	s.Seed = c.ArenaSeed
	s.MaxEnvironmentSteps = c.ArenaMaxSteps
	s.Mode = game.ParseBehaviouralPattern(c.ArenaMode)
	s.UseGridMovement = c.ArenaGridMovement
	s.RoleAssignment = game.ParseRoleAssignment(c.ArenaRoles)
	s.DifferentiateRolesProb = c.ArenaRolesProb
	s.BackupConfigFile = c.ArenaBackupFile
	s.SaveEnvironmentConfiguration = c.ArenaSaveBackup
	return s
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsIntWithDefault parses an integer variable, falling back to the default when unset or malformed.
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[APP] [WARNING] Environment variable %s must be an integer: %v", key, err)
		return defaultValue
	}
	return value
}

func getEnvAsFloatWithDefault(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("[APP] [WARNING] Environment variable %s must be a number: %v", key, err)
		return defaultValue
	}
	return value
}

func getEnvAsBoolWithDefault(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("[APP] [WARNING] Environment variable %s must be a boolean: %v", key, err)
		return defaultValue
	}
	return value
}

func getEnvAsDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("[APP] [WARNING] Environment variable %s must be a duration: %v", key, err)
		return defaultValue
	}
	return value
}
