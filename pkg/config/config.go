package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App    AppConfig
	Log    LogConfig
	DB     DBConfig
	JWT    JWTConfig
	Auth   AuthConfig
	HTTP   HTTPConfig
	Fiscal FiscalConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel de log (trace, debug, info, warn, error).
type LogConfig struct {
	Level string
}

// DBConfig configuración de PostgreSQL.
// Con Enabled=false el servicio funciona sin estado: valida y calcula pero no persiste.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	Enabled     bool
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN connection string con URL encoding para caracteres especiales de la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// AuthConfig clientes de la API autorizados a pedir tokens.
// Formato de AUTH_CLIENTS: "id:rol:hash_bcrypt,id:rol:hash_bcrypt".
type AuthConfig struct {
	Clients string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host      string
	Port      int
	BodyLimit int // bytes; los lotes de notas pueden ser grandes
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FiscalConfig parámetros del motor fiscal.
type FiscalConfig struct {
	RatesFile      string // YAML con la tabla de alícuotas; vacío = tabla embebida
	BatchShardSize int    // notas por shard al agregar lotes en paralelo
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_ENABLED, JWT_SECRET, FISCAL_RATES_FILE, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "nfe-fiscal"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Enabled:     getBool(v, "DB_ENABLED", false),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "nfe_fiscal"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "nfe-fiscal"),
		},
		Auth: AuthConfig{
			Clients: getString(v, "AUTH_CLIENTS", ""),
		},
		HTTP: HTTPConfig{
			Host:      getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:      getInt(v, "HTTP_PORT", 8080),
			BodyLimit: getInt(v, "HTTP_BODY_LIMIT", 16*1024*1024),
		},
		Fiscal: FiscalConfig{
			RatesFile:      getString(v, "FISCAL_RATES_FILE", ""),
			BatchShardSize: getInt(v, "FISCAL_BATCH_SHARD_SIZE", 500),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Fiscal.BatchShardSize <= 0 {
		return fmt.Errorf("config: FISCAL_BATCH_SHARD_SIZE debe ser positivo, recibido %d", c.Fiscal.BatchShardSize)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: HTTP_PORT fuera de rango: %d", c.HTTP.Port)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return b
	}
	return v.GetBool(key)
}
