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
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Kafka    KafkaConfig
		Midtrans MidtransConfig
		Upload   UploadConfig
		Grading  GradingConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		DisableReqLogs            bool
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
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
		MaxOpenConns  int
		MaxIdleConns  int
		LogQueries    bool
		SlowThreshold time.Duration
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	KafkaConfig struct {
		Brokers []string
		Topic   string
	}

	MidtransConfig struct {
		ServerKey  string
		Production bool
	}

	UploadConfig struct {
		Dir           string
		PublicURL     string
		MaxSize       int64
		AllowedTypes  []string
		MaxImageWidth int
	}

	GradingConfig struct {
		QuizPassingPercentage       float64
		AssignmentPassingPercentage float64
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("app.name", "Darasa")
	v.SetDefault("app.secretKey", "k3y-5s8r)d(n$+57=dq&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("app.frontendBaseURL", "http://localhost:3000")
	v.SetDefault("app.defaultFromEmail", "noreply@localhost")
	v.SetDefault("app.passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "darasa")
	v.SetDefault("database.user", "darasa")
	v.SetDefault("database.password", "darasa")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.slowThreshold", 200*time.Millisecond)

	v.SetDefault("kafka.topic", "darasa.events")

	v.SetDefault("upload.dir", "public/uploads")
	v.SetDefault("upload.publicURL", "/uploads")
	v.SetDefault("upload.maxSize", 1<<20) // 1MB
	v.SetDefault("upload.allowedTypes", []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"})
	v.SetDefault("upload.maxImageWidth", 1280)

	v.SetDefault("grading.quizPassingPercentage", 70.0)
	v.SetDefault("grading.assignmentPassingPercentage", 70.0)
}

// NewConfig loads the configuration of the current ENV from `config/.env.<env>` (if any) and the environment.
// Environment variables are prefixed with the ENV name, eg. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := ProjectRoot()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		AppName:                   v.GetString("app.name"),
		SecretKey:                 v.GetString("app.secretKey"),
		FrontendBaseURL:           v.GetString("app.frontendBaseURL"),
		DefaultFromEmail:          mail.Address{Name: v.GetString("app.name"), Address: v.GetString("app.defaultFromEmail")},
		WorkDir:                   workDir,
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: v.GetDuration("app.passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
			LogQueries:    v.GetBool("database.logQueries"),
			SlowThreshold: v.GetDuration("database.slowThreshold"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Midtrans: MidtransConfig{
			ServerKey:  v.GetString("midtrans.serverKey"),
			Production: v.GetBool("midtrans.production"),
		},
		Upload: UploadConfig{
			Dir:           v.GetString("upload.dir"),
			PublicURL:     v.GetString("upload.publicURL"),
			MaxSize:       v.GetInt64("upload.maxSize"),
			AllowedTypes:  v.GetStringSlice("upload.allowedTypes"),
			MaxImageWidth: v.GetInt("upload.maxImageWidth"),
		},
		Grading: GradingConfig{
			QuizPassingPercentage:       v.GetFloat64("grading.quizPassingPercentage"),
			AssignmentPassingPercentage: v.GetFloat64("grading.assignmentPassingPercentage"),
		},
	}
	if conf.TestMode {
		conf.Debug = false
	}
	return conf
}

// splitList splits a comma separated env value; empty items are dropped.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
