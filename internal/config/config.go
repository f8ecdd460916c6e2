package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB          DBConfig
	Server      ServerConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	GoogleOAuth GoogleOAuthConfig
	Whisper     WhisperConfig
	YtDlp       YtDlpConfig
	Gemini      GeminiConfig
	Pipeline    PipelineConfig
	Cache       CacheConfig
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DBConfig struct {
	Driver   string // "oracle" (go-ora) or "godror"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AllowOrigins string
}

type LoggerConfig struct {
	Env   string
	Level string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// CookieConfig controls how the access/refresh token cookies are written.
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
	Path     string
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type WhisperConfig struct {
	Binary       string
	Model        string
	DownloadRoot string
}

type YtDlpConfig struct {
	Binary      string
	CookiesPath string
	JSRuntime   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type PipelineConfig struct {
	TempDir string
	Timeout time.Duration
}

type CacheConfig struct {
	QuizTTL time.Duration
}

func setDefaults() {
	viper.SetDefault("db.driver", "oracle")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 1521)
	viper.SetDefault("db.name", "FREEPDB1")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.allow_origins", "http://localhost:3000")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("jwt.access_token_ttl", "30m")
	viper.SetDefault("jwt.refresh_token_ttl", "24h")
	viper.SetDefault("cookie.same_site", "Lax")
	viper.SetDefault("cookie.path", "/")
	viper.SetDefault("whisper.binary", "whisper")
	viper.SetDefault("whisper.model", "small")
	viper.SetDefault("yt_dlp.binary", "yt-dlp")
	viper.SetDefault("yt_dlp.js_runtime", "node")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("pipeline.timeout", "0s")
	viper.SetDefault("cache.quiz_ttl", "10m")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add config paths based on environment
	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	config := &Config{
		DB: DBConfig{
			Driver:   viper.GetString("db.driver"),
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
		},
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  time.Duration(viper.GetInt("server.read_timeout")) * time.Second,
			WriteTimeout: time.Duration(viper.GetInt("server.write_timeout")) * time.Second,
			AllowOrigins: viper.GetString("server.allow_origins"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Env:   viper.GetString("logger.env"),
			Level: viper.GetString("logger.level"),
		},
		JWT: JWTConfig{
			SecretKey:       viper.GetString("jwt.secret_key"),
			AccessTokenTTL:  viper.GetDuration("jwt.access_token_ttl"),
			RefreshTokenTTL: viper.GetDuration("jwt.refresh_token_ttl"),
		},
		Cookie: CookieConfig{
			Secure:   viper.GetBool("cookie.secure"),
			SameSite: viper.GetString("cookie.same_site"),
			Domain:   viper.GetString("cookie.domain"),
			Path:     viper.GetString("cookie.path"),
		},
		GoogleOAuth: GoogleOAuthConfig{
			ClientID:     viper.GetString("google_oauth.client_id"),
			ClientSecret: viper.GetString("google_oauth.client_secret"),
			RedirectURL:  viper.GetString("google_oauth.redirect_url"),
		},
		Whisper: WhisperConfig{
			Binary:       viper.GetString("whisper.binary"),
			Model:        viper.GetString("whisper.model"),
			DownloadRoot: viper.GetString("whisper.download_root"),
		},
		YtDlp: YtDlpConfig{
			Binary:      viper.GetString("yt_dlp.binary"),
			CookiesPath: viper.GetString("yt_dlp.cookies_path"),
			JSRuntime:   viper.GetString("yt_dlp.js_runtime"),
		},
		Gemini: GeminiConfig{
			APIKey: viper.GetString("gemini.api_key"),
			Model:  viper.GetString("gemini.model"),
		},
		Pipeline: PipelineConfig{
			TempDir: viper.GetString("pipeline.temp_dir"),
			Timeout: viper.GetDuration("pipeline.timeout"),
		},
		Cache: CacheConfig{
			QuizTTL: viper.GetDuration("cache.quiz_ttl"),
		},
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides maps the plain environment variable names used by the
// deployment onto the nested config keys.
func applyEnvOverrides(config *Config) {
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.DB.Driver = driver
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.DB.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		config.DB.DBName = dbname
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			config.Redis.DB = db
		}
	}
	if env := os.Getenv("LOG_ENV"); env != "" {
		config.Logger.Env = env
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logger.Level = level
	}
	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.JWT.SecretKey = secret
	}
	if secure := os.Getenv("SECURE_COOKIES"); secure != "" {
		config.Cookie.Secure = secure == "True" || secure == "true"
	}
	if sameSite := os.Getenv("JWT_COOKIE_SAMESITE"); sameSite != "" {
		config.Cookie.SameSite = sameSite
	}
	if domain := os.Getenv("JWT_COOKIE_DOMAIN"); domain != "" {
		config.Cookie.Domain = domain
	}
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		config.GoogleOAuth.ClientID = clientID
	}
	if clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET"); clientSecret != "" {
		config.GoogleOAuth.ClientSecret = clientSecret
	}
	if redirectURL := os.Getenv("GOOGLE_REDIRECT_URL"); redirectURL != "" {
		config.GoogleOAuth.RedirectURL = redirectURL
	}
	if model := os.Getenv("WHISPER_MODEL"); model != "" {
		config.Whisper.Model = model
	}
	if root := os.Getenv("WHISPER_DOWNLOAD_ROOT"); root != "" {
		config.Whisper.DownloadRoot = root
	}
	if cookies := os.Getenv("YT_DLP_COOKIES_PATH"); cookies != "" {
		config.YtDlp.CookiesPath = cookies
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
}

func (c *Config) GetDSN() string {
	// Oracle DSN format: user/password@host:port/service
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
	)
}

// GetGodrorDSN builds the logfmt connection string understood by godror.
func (c *Config) GetGodrorDSN() string {
	connectString := fmt.Sprintf("%s:%d/%s", c.DB.Host, c.DB.Port, c.DB.DBName)
	return fmt.Sprintf("user=%q password=%q connectString=%q", c.DB.User, c.DB.Password, connectString)
}
