package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/joho/godotenv"
)

const (
	AppEnvKey  = "APP_ENV"
	EnvFileKey = "ENV_FILE"
)

// envFiles lists the dotenv files to load, most specific first. godotenv never
// overrides a variable that is already set, so earlier files win.
func envFiles(appEnv string) []string {
	if explicit := strings.TrimSpace(os.Getenv(EnvFileKey)); explicit != "" {
		var files []string
		for _, f := range strings.Split(explicit, ",") {
			if f = strings.TrimSpace(f); f != "" {
				files = append(files, f)
			}
		}
		return files
	}

	files := []string{}
	if appEnv != "" {
		files = append(files, ".env."+appEnv)
	}
	return append(files, ".env")
}

func InitializeEnvFile(logger *log.Logger) {
	if os.Getenv("SKIP_DOTENV") == "true" {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	loaded := 0
	for _, file := range envFiles(GetAppEnv()) {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			logger.Warn("Failed to load env file", "file", file, "error", err.Error())
			continue
		}
		loaded++
		logger.Info("Environment variables loaded", "file", file)
	}

	if loaded == 0 {
		logger.Warn("No .env file found, using process environment only")
	}
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

// ValidateAutoMigrateAllowed keeps AutoMigrate away from shared deployments,
// where the waitlist schema is owned by the SQL migrations.
func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))

	switch env {
	case "", "dev", "development", "local", "test", "testing":
		return nil
	default:
		return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: \"\", dev, development, local, test, testing)", AppEnvKey, env)
	}
}
