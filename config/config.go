package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	DBPath      string
	DBDriver    string // "sqlite3" (cgo) or "sqlite" (pure Go)
	Environment string
	// Taxonomy seeding: when set, this YAML document becomes version 1 on an empty database
	TaxonomyPath string
	// Reports
	ReportDir         string // local fallback when R2 is not configured
	ReportArchiveCron string
	// Archived workbooks older than this are deleted after each nightly run; 0 keeps them all
	ReportRetentionDays int
	ChromePath          string
	Timezone            string
	// Assessment sessions
	SessionIdleMinutes int
	// Role lookup from the fronting proxy
	AdminGroups []string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	NotifyEmails  []string
	// Other
	AllowedOrigins []string
	AppURL         string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DBPath:              getEnv("DB_PATH", "db/app.db"),
		DBDriver:            getEnv("DB_DRIVER", "sqlite3"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		TaxonomyPath:        getEnv("TAXONOMY_PATH", ""),
		ReportDir:           getEnv("REPORT_DIR", "static/reports"),
		ReportArchiveCron:   getEnv("REPORT_ARCHIVE_CRON", "0 2 * * *"),
		ReportRetentionDays: getEnvInt("REPORT_RETENTION_DAYS", 90),
		ChromePath:          getEnv("CHROME_PATH", ""),
		Timezone:            getEnv("TZ", "UTC"),
		SessionIdleMinutes:  getEnvInt("SESSION_IDLE_MINUTES", 240),
		AdminGroups:         getEnvList("ADMIN_GROUPS", "sustainability-admins"),
		ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
		EmailFrom:           getEnv("EMAIL_FROM", "noreply@sustainscore.local"),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Sustainability Scoring"),
		EmailTestMode:       getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		NotifyEmails:        getEnvList("NOTIFY_EMAILS", ""),
		AllowedOrigins:      getEnvList("ALLOWED_ORIGINS", "*"),
		AppURL:              getEnv("APP_URL", "http://localhost:8080"),
		R2AccountID:         getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:       getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:        getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:         getEnv("R2_PUBLIC_URL", ""),
	}
}

// IsAdminGroup reports whether group grants admin rights
func (c *Config) IsAdminGroup(group string) bool {
	group = strings.TrimSpace(group)
	for _, g := range c.AdminGroups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// R2Enabled reports whether every R2 credential is present
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		log.Printf("[WARNING] Invalid integer for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key, defaultValue string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		raw = defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
