package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	BackendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	CheckoutConfig struct {
		Provider          string // paystack (default) | midtrans
		Currency          string
		PaystackPublicKey string
		PaystackSecretKey string
		PaystackBaseURL   string
		MidtransServerKey string
		MidtransProd      bool
		RedirectDelay     time.Duration
	}

	SessionsConfig struct {
		Driver        string // bolt (default) | memory | redis | postgres
		BoltPath      string
		RedisAddr     string
		RedisPassword string
		TTL           time.Duration
		CookieName    string
		CookieSecure  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SupportEmail     mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Backend  BackendConfig
		Checkout CheckoutConfig
		Sessions SessionsConfig
		Database DatabaseConfig
	}
)

func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

type setting struct {
	key string
	env string
	def interface{}
}

var settings = []setting{
	{"debug", "DEBUG", true},
	{"testMode", "TEST_MODE", false},
	{"appName", "APP_NAME", "TutorHub"},
	{"build", "BUILD", "dev"},
	{"secretKey", "SECRET_KEY", "k3y!9wq0=f+vmd$3r&u2a)zs6c#y^l8x@n*7hb_4t1(p5e-ig"},
	{"frontendBaseURL", "FRONTEND_BASE_URL", "http://localhost:3000"},
	{"defaultFromEmail", "DEFAULT_FROM_EMAIL", "noreply@localhost"},
	{"supportEmail", "SUPPORT_EMAIL", "support@localhost"},
	{"sendgridApiKey", "SENDGRID_API_KEY", ""},
	{"rollbarToken", "ROLLBAR_TOKEN", ""},

	{"serverHost", "SERVER_HOST", "localhost"},
	{"serverAddr", "SERVER_ADDR", ":8000"},
	{"serverDebugHost", "SERVER_DEBUG_HOST", ":4000"},
	{"serverReadTimeout", "SERVER_READ_TIMEOUT", 10 * time.Second},
	{"serverWriteTimeout", "SERVER_WRITE_TIMEOUT", 20 * time.Second},
	{"serverShutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT", 10 * time.Second},
	{"serverDisableReqLogs", "SERVER_DISABLE_REQ_LOGS", false},

	{"backendBaseURL", "BACKEND_BASE_URL", "http://localhost:5000"},
	{"backendTimeout", "BACKEND_TIMEOUT", 15 * time.Second},

	{"checkoutProvider", "CHECKOUT_PROVIDER", "paystack"},
	{"currency", "CURRENCY", "NGN"},
	{"paystackPublicKey", "PAYSTACK_PUBLIC_KEY", ""},
	{"paystackSecretKey", "PAYSTACK_SECRET_KEY", ""},
	{"paystackBaseURL", "PAYSTACK_BASE_URL", "https://api.paystack.co"},
	{"midtransServerKey", "MIDTRANS_SERVER_KEY", ""},
	{"midtransProduction", "MIDTRANS_PRODUCTION", false},
	{"checkoutRedirectDelay", "CHECKOUT_REDIRECT_DELAY", 2 * time.Second},

	{"sessionsDriver", "SESSIONS_DRIVER", "bolt"},
	{"sessionsBoltPath", "SESSIONS_BOLT_PATH", "data/sessions.db"},
	{"redisAddr", "REDIS_ADDR", "127.0.0.1:6379"},
	{"redisPassword", "REDIS_PASSWORD", ""},
	{"sessionsTTL", "SESSIONS_TTL", 30 * 24 * time.Hour},
	{"sessionsCookieName", "SESSIONS_COOKIE_NAME", "tutorhub_sid"},
	{"sessionsCookieSecure", "SESSIONS_COOKIE_SECURE", false},

	{"dbEngine", "DB_ENGINE", "postgres"},
	{"dbHost", "DB_HOST", "localhost"},
	{"dbPort", "DB_PORT", "5432"},
	{"dbName", "DB_NAME", "tutorhub"},
	{"dbUser", "DB_USER", ""},
	{"dbPassword", "DB_PASSWORD", ""},
	{"dbAdminUser", "DB_ADMIN_USER", "postgres"},
	{"dbAdminPassword", "DB_ADMIN_PASSWORD", ""},
	{"dbDisableTLS", "DB_DISABLE_TLS", true},
}

// NewConfig reads the configuration from the environment (optionally pre-loaded from config/.env.<env>).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
	}

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// <ENV>_BACKEND_BASE_URL wins over BACKEND_BASE_URL
	for _, s := range settings {
		_ = v.BindEnv(s.key, env+"_"+s.env, s.env)
	}

	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: parseAddress(v.GetString("defaultFromEmail")),
		SupportEmail:     parseAddress(v.GetString("supportEmail")),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Addr:            v.GetString("serverAddr"),
			DebugHost:       v.GetString("serverDebugHost"),
			ReadTimeout:     v.GetDuration("serverReadTimeout"),
			WriteTimeout:    v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			DisableReqLogs:  v.GetBool("serverDisableReqLogs"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("backendBaseURL"), "/"),
			Timeout: v.GetDuration("backendTimeout"),
		},
		Checkout: CheckoutConfig{
			Provider:          strings.ToLower(v.GetString("checkoutProvider")),
			Currency:          strings.ToUpper(v.GetString("currency")),
			PaystackPublicKey: v.GetString("paystackPublicKey"),
			PaystackSecretKey: v.GetString("paystackSecretKey"),
			PaystackBaseURL:   strings.TrimRight(v.GetString("paystackBaseURL"), "/"),
			MidtransServerKey: v.GetString("midtransServerKey"),
			MidtransProd:      v.GetBool("midtransProduction"),
			RedirectDelay:     v.GetDuration("checkoutRedirectDelay"),
		},
		Sessions: SessionsConfig{
			Driver:        strings.ToLower(v.GetString("sessionsDriver")),
			BoltPath:      v.GetString("sessionsBoltPath"),
			RedisAddr:     v.GetString("redisAddr"),
			RedisPassword: v.GetString("redisPassword"),
			TTL:           v.GetDuration("sessionsTTL"),
			CookieName:    v.GetString("sessionsCookieName"),
			CookieSecure:  v.GetBool("sessionsCookieSecure"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
	}
	return conf
}

func parseAddress(s string) mail.Address {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return mail.Address{Address: s}
	}
	return *addr
}
