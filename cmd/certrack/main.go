package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/danupranata/certrack/internal/certrack/controller"
	"github.com/danupranata/certrack/internal/certrack/db"
	"github.com/danupranata/certrack/internal/certrack/eligibility"
	"github.com/danupranata/certrack/internal/certrack/events"
	"github.com/danupranata/certrack/internal/certrack/handlers"
	"github.com/danupranata/certrack/internal/certrack/importer"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/danupranata/certrack/internal/certrack/notify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config struct for YAML configuration
type Config struct {
	HTTPPort        int      `yaml:"HTTP_PORT"`
	DBHost          string   `yaml:"DB_HOST"`
	DBPort          int      `yaml:"DB_PORT"`
	DBUser          string   `yaml:"DB_USER"`
	DBPassword      string   `yaml:"DB_PASSWORD"`
	DBName          string   `yaml:"DB_NAME"`
	DBSSLMode       string   `yaml:"DB_SSLMODE"`
	KafkaBrokers    []string `yaml:"KAFKA_BROKERS"`
	Topic           string   `yaml:"TOPIC"`
	ConsumerGroup   string   `yaml:"CONSUMER_GROUP"`
	SMTPAddr        string   `yaml:"SMTP_ADDR"`
	MailFrom        string   `yaml:"MAIL_FROM"`
	MailWorkers     int      `yaml:"MAIL_WORKERS"`
	ImportChunkSize int      `yaml:"IMPORT_CHUNK_SIZE"`
	SchedulerSpec   string   `yaml:"SCHEDULER_SPEC"`
}

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := db.NewRepository(initDatabase(cfg))
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}
	defer repo.Close()

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		log.Fatal("failed to initialize Kafka producer", err)
	}
	defer producer.Close()

	// Eligibility recomputation consumes certification-changed events, so
	// it only ever observes committed state.
	engine := eligibility.NewEngine(repo, logger)
	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, logger)
	consumer.RegisterHandler(func(ctx context.Context, ev events.Event) error {
		return engine.Recompute(ctx, ev.EmployeeID)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.Start(ctx)
	defer consumer.Close()

	mailer := &notify.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.MailFrom}
	pool := notify.NewPool(mailer, repo, logger, cfg.MailWorkers)
	defer pool.Close()

	scheduler := notify.NewScheduler(repo, pool, logger)
	cronRunner := cron.New()
	spec := cfg.SchedulerSpec
	if spec == "" {
		spec = "@every 15m"
	}
	// The schedule records gate actual execution (time-of-day, weekend,
	// once-per-day); the cron entry just polls.
	_, err = cronRunner.AddFunc(spec, func() {
		for _, typ := range []models.NotificationType{
			models.NotifCertReminder,
			models.NotifBatch,
			models.NotifExpired,
		} {
			if err := scheduler.RunType(context.Background(), typ); err != nil {
				logger.Error("scheduled notification run failed",
					zap.String("type", string(typ)), zap.Error(err))
			}
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule notification runs", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	planner := importer.NewPlanner(repo, nil, producer, logger, cfg.ImportChunkSize)
	certSvc := controller.NewCertificationService(repo, producer, logger)

	server := handlers.NewServer(cfg.HTTPPort, logger)
	server.Register(handlers.NewHandler(planner, certSvc, repo, logger))
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// loadConfig loads configuration. Use real config tooling (e.g. Viper) in production.
func loadConfig() (*Config, error) {
	configPath := filepath.Join("internal", "certrack", "config", "config.yaml")
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// initDatabase initializes the database connection settings.
func initDatabase(cfg *Config) *db.Config {
	return &db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Server stopped properly")
}
