package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
type AppConfig struct {
	AppPort        string
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database. DatabaseURI wins when set; otherwise DBHost selects MySQL
	// and an empty DBHost falls back to the local SQLite file.
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Board behaviour
	UploadDir         string
	UploadURLPrefix   string
	MaxUploadBytes    int64
	MaxBodyBytes      int64
	PageSize          int
	StrictAttachments bool
	// Notice bar configuration
	NoticeTitle string
	NoticeHTML  string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

const (
	// DefaultSQLiteURI is used when neither DatabaseURI nor DBHost is configured.
	DefaultSQLiteURI = "sqlite://data/posts.db"
	// DefaultMaxUploadBytes is the hard ceiling for a single attachment (20 MiB).
	DefaultMaxUploadBytes int64 = 20 << 20
)

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// A local .env only fills variables the process environment does not set.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("ignoring invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// DatabaseDSN returns the URI handed to OpenDatabase.
func (c AppConfig) DatabaseDSN() string {
	if c.DatabaseURI != "" {
		return c.DatabaseURI
	}
	if c.DBHost == "" {
		return DefaultSQLiteURI
	}
	port := c.DBPort
	if port == "" {
		port = "3306"
	}
	user := c.DBUser
	if user == "" {
		user = "root"
	}
	name := c.DBName
	if name == "" {
		name = "anonbbs"
	}
	return "mysql://" + user + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + name +
		"?charset=utf8mb4&parseTime=True&loc=Local"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	// Grouped sections first, then flat keys fill whatever is still empty.
	sections := []map[string]any{}
	for _, name := range []string{"app", "board", "database", "log", "gin"} {
		if m, ok := raw[name].(map[string]any); ok {
			sections = append(sections, prefixGin(name, m))
		}
	}
	sections = append(sections, raw)

	seen := map[string]bool{}
	for _, m := range sections {
		setString(m, "AppPort", &out.AppPort)
		setString(m, "GinMode", &out.GinMode)
		setString(m, "GinPath", &out.GinPath)
		setString(m, "DatabaseURI", &out.DatabaseURI)
		setString(m, "DBHost", &out.DBHost)
		setString(m, "DBPort", &out.DBPort)
		setString(m, "DBUser", &out.DBUser)
		setString(m, "DBPassword", &out.DBPassword)
		setString(m, "DBName", &out.DBName)
		setString(m, "UploadDir", &out.UploadDir)
		setString(m, "UploadURLPrefix", &out.UploadURLPrefix)
		setString(m, "NoticeTitle", &out.NoticeTitle)
		setString(m, "NoticeHTML", &out.NoticeHTML)
		setString(m, "LogLevel", &out.LogLevel)
		setString(m, "LogPath", &out.LogPath)
		setInt64(m, "MaxUploadBytes", &out.MaxUploadBytes)
		setInt64(m, "MaxBodyBytes", &out.MaxBodyBytes)
		setInt(m, "PageSize", &out.PageSize)
		setInt(m, "LogMaxSizeMB", &out.LogMaxSizeMB)
		setInt(m, "LogMaxBackups", &out.LogMaxBackups)
		setInt(m, "LogMaxAgeDays", &out.LogMaxAgeDays)
		setBool(m, "StrictAttachments", &out.StrictAttachments, seen)
		setBool(m, "LogCompress", &out.LogCompress, seen)
		if v, ok := m["AllowedOrigins"].([]any); ok && len(out.AllowedOrigins) == 0 {
			for _, it := range v {
				if s, ok := it.(string); ok {
					out.AllowedOrigins = append(out.AllowedOrigins, s)
				}
			}
		}
	}
	return nil
}

// prefixGin maps the gin section's short keys (Mode, LogPath) onto the flat names.
func prefixGin(section string, m map[string]any) map[string]any {
	if section != "gin" {
		return m
	}
	out := map[string]any{}
	if v, ok := m["Mode"]; ok {
		out["GinMode"] = v
	}
	if v, ok := m["LogPath"]; ok {
		out["GinPath"] = v
	}
	return out
}

func setString(m map[string]any, key string, dst *string) {
	if *dst != "" {
		return
	}
	if s, ok := m[key].(string); ok {
		*dst = s
	}
}

func setInt(m map[string]any, key string, dst *int) {
	if *dst != 0 {
		return
	}
	if f, ok := m[key].(float64); ok {
		*dst = int(f)
	}
}

func setInt64(m map[string]any, key string, dst *int64) {
	if *dst != 0 {
		return
	}
	if f, ok := m[key].(float64); ok {
		*dst = int64(f)
	}
}

// setBool records which keys were set; false is a real value, so the zero
// value cannot mark "still empty" the way it does for the other setters.
func setBool(m map[string]any, key string, dst *bool, seen map[string]bool) {
	if seen[key] {
		return
	}
	if b, ok := m[key].(bool); ok {
		*dst = b
		seen[key] = true
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("static", "uploads")
	}
	if c.UploadURLPrefix == "" {
		c.UploadURLPrefix = "/uploads"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = c.MaxUploadBytes + 5<<20
	}
	if c.PageSize == 0 {
		c.PageSize = 10
	}
	if c.NoticeTitle == "" {
		c.NoticeTitle = "Notice"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("UPLOAD_DIR", ""); v != "" {
		c.UploadDir = v
	}
	if v := getEnv("UPLOAD_URL_PREFIX", ""); v != "" {
		c.UploadURLPrefix = v
	}
	if v := getEnv("MAX_UPLOAD_BYTES", ""); v != "" {
		c.MaxUploadBytes = mustParseInt64(v)
	}
	if v := getEnv("MAX_BODY_BYTES", ""); v != "" {
		c.MaxBodyBytes = mustParseInt64(v)
	}
	if v := getEnv("PAGE_SIZE", ""); v != "" {
		c.PageSize = mustParseInt(v)
	}
	if v := getEnv("STRICT_ATTACHMENTS", ""); v != "" {
		c.StrictAttachments = v == "true"
	}
	if v := getEnv("NOTICE_TITLE", ""); v != "" {
		c.NoticeTitle = v
	}
	if v := getEnv("NOTICE_HTML", ""); v != "" {
		c.NoticeHTML = v
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func mustParseInt64(val string) int64 {
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		items := []string{}
		for _, item := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return items
	}
	return defaults
}
