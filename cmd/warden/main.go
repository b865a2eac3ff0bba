package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/lib/pq"

	"github.com/intrntsrfr/warden/bot"
	"github.com/intrntsrfr/warden/health"
	"github.com/intrntsrfr/warden/moderation"
	"github.com/intrntsrfr/warden/store"
)

type config struct {
	Token            string `json:"token" env:"DISCORD_TOKEN"`
	ConnectionString string `json:"connection_string" env:"CONNECTION_STRING"`
	DataDir          string `json:"data_dir" env:"DATA_DIR"`
	HealthAddr       string `json:"health_addr" env:"HEALTH_ADDR"`
}

func main() {
	app := &cli.App{
		Name:  "warden",
		Usage: "auto-moderation discord bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "./config.json",
				Usage: "path to the json config file",
			},
			&cli.BoolFlag{
				Name:  "file-store",
				Usage: "persist documents as flat json files instead of badger",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	logger := newLogger("warden")
	defer logger.Sync()

	st, err := openStore(cfg, c.Bool("file-store"), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := moderation.NewService(st, logger.Named("moderation"))
	if err != nil {
		return err
	}

	b, err := bot.NewBot(&bot.Config{
		Log:     logger.Named("bot"),
		Service: svc,
		Token:   cfg.Token,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	hs := health.NewServer(cfg.HealthAddr, logger.Named("health"))
	hs.Start()
	defer hs.Close()

	if err := b.Run(); err != nil {
		return err
	}

	// block until ctrl-c
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc
	return nil
}

// loadConfig reads the optional json file, then lets environment variables
// override it.
func loadConfig(path string) (*config, error) {
	cfg := &config{}

	if d, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(d, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		return nil, cli.Exit("no discord token found", 1)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.HealthAddr == "" {
		cfg.HealthAddr = ":5000"
	}
	return cfg, nil
}

func openStore(cfg *config, fileStore bool, logger *zap.Logger) (store.Store, error) {
	switch {
	case cfg.ConnectionString != "":
		return store.NewPsqlStore(cfg.ConnectionString, logger.Named("store"))
	case fileStore:
		return store.NewFileStore(cfg.DataDir)
	default:
		return store.NewBadgerStore(cfg.DataDir, logger.Named("store"))
	}
}

func newLogger(name string) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(zapcore.InfoLevel),
	)
	return zap.New(core, zap.AddCaller()).Named(name)
}
