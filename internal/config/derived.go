package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4/middleware"

	"github.com/theadityachoudhury/auth-service/internal/logging"
)

// splitList turns a comma-separated setting into a trimmed slice,
// dropping empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// AllowOriginsList returns the CORS origins as a slice.
func (s *Settings) AllowOriginsList() []string { return splitList(s.AllowOrigins) }

// AllowMethodsList returns the CORS methods as a slice.
func (s *Settings) AllowMethodsList() []string { return splitList(s.AllowMethods) }

// AllowHeadersList returns the CORS headers as a slice.
func (s *Settings) AllowHeadersList() []string { return splitList(s.AllowHeaders) }

// TrustedHostsList returns the trusted host patterns as a slice.
func (s *Settings) TrustedHostsList() []string { return splitList(s.TrustedHosts) }

// CORSConfig returns the Echo CORS middleware configuration.
func (s *Settings) CORSConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     s.AllowOriginsList(),
		AllowMethods:     s.AllowMethodsList(),
		AllowHeaders:     s.AllowHeadersList(),
		AllowCredentials: s.AllowCredentials,
	}
}

// JWTConfig bundles the token-signing parameters.
type JWTConfig struct {
	Secret          string
	Algorithm       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

// JWTConfig returns the token configuration, with the JWT secret already
// defaulted to the app secret by Load.
func (s *Settings) JWTConfig() JWTConfig {
	return JWTConfig{
		Secret:          s.JWTSecretKey,
		Algorithm:       s.JWTAlgorithm,
		AccessTokenTTL:  time.Duration(s.JWTAccessTokenExpireMinutes) * time.Minute,
		RefreshTokenTTL: time.Duration(s.JWTRefreshTokenExpireDays) * 24 * time.Hour,
		Issuer:          s.AppName,
	}
}

// DatabaseConfig bundles connection pool parameters for pgx.
type DatabaseConfig struct {
	URL             string
	Echo            bool
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// DatabaseConfig returns the pool configuration. Pool size plus overflow
// maps to the pool's hard cap, and the base size is kept warm.
func (s *Settings) DatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             s.DatabaseURL,
		Echo:            s.DatabaseEcho,
		MaxConns:        int32(s.DatabasePoolSize + s.DatabaseMaxOverflow),
		MinConns:        int32(s.DatabasePoolSize),
		ConnMaxLifetime: time.Duration(s.DatabaseConnMaxLifetime) * time.Second,
	}
}

// PasswordPolicy bundles the registration password requirements.
type PasswordPolicy struct {
	MinLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
}

// PasswordPolicy returns the configured password requirements.
func (s *Settings) PasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:           s.PasswordMinLength,
		RequireUppercase:    s.PasswordRequireUppercase,
		RequireLowercase:    s.PasswordRequireLowercase,
		RequireNumbers:      s.PasswordRequireNumbers,
		RequireSpecialChars: s.PasswordRequireSpecialChars,
	}
}

// LoggingConfig translates the logging settings into the logging package's
// sink configuration.
func (s *Settings) LoggingConfig() logging.Config {
	return logging.Config{
		Level:     s.LogLevel,
		Console:   s.LogConsole,
		Color:     s.LogColor,
		JSON:      s.LogJSON,
		Backtrace: s.LogBacktrace,

		File:          s.LogFile,
		RotationMB:    parseRotationMB(s.LogRotation, s.LogFileSize),
		RetentionDays: parseRetentionDays(s.LogRetention),
		MaxBackups:    s.LogFileCount,
		Compression:   s.LogCompression,

		Exception:              s.LogException,
		ExceptionFile:          s.LogExceptionFile,
		ExceptionLevel:         s.LogExceptionLevel,
		ExceptionJSON:          s.LogExceptionJSON,
		ExceptionRotationMB:    parseRotationMB(s.LogExceptionRotation, s.LogExceptionFileSize),
		ExceptionRetentionDays: parseRetentionDays(s.LogExceptionRetention),
		ExceptionMaxBackups:    s.LogExceptionFileCount,
		ExceptionCompression:   s.LogExceptionCompression,

		AppName:     s.AppName,
		AppVersion:  s.AppVersion,
		Environment: s.Environment,
	}
}

// parseRotationMB interprets LOG_ROTATION values like "100 MB" or "1 GB".
// Interval-based values such as "1 day" have no size component; rotation
// then falls back to the LOG_FILE_SIZE byte limit.
func parseRotationMB(rotation string, fallbackBytes int) int {
	fields := strings.Fields(strings.TrimSpace(rotation))
	if len(fields) == 2 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			switch strings.ToUpper(fields[1]) {
			case "MB":
				return n
			case "GB":
				return n * 1024
			}
		}
	}
	if fallbackBytes > 0 {
		mb := fallbackBytes / (1024 * 1024)
		if mb < 1 {
			mb = 1
		}
		return mb
	}
	return 10
}

// parseRetentionDays interprets LOG_RETENTION values like "7 days".
// Anything unparseable disables age-based pruning.
func parseRetentionDays(retention string) int {
	fields := strings.Fields(strings.TrimSpace(retention))
	if len(fields) == 2 && strings.HasPrefix(strings.ToLower(fields[1]), "day") {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// Address returns the host:port the HTTP server binds to.
func (s *Settings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
