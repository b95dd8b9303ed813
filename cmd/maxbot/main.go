// Command maxbot runs a minimal bot instance: it wires a storage
// backend, a dispatcher, and an ingestion driver (long-poll or
// webhook) together, and is meant as a worked example of the
// dispatcher/filters/fsm packages rather than a deployable bot on its
// own — register your own routers before calling Ready.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/maxbot/bot"
	maxbotconfig "github.com/hrygo/maxbot/internal/config"
	"github.com/hrygo/maxbot/internal/version"
	"github.com/hrygo/maxbot/dispatcher"
	"github.com/hrygo/maxbot/fsm"
	fsmmemory "github.com/hrygo/maxbot/fsm/memory"
	fsmredis "github.com/hrygo/maxbot/fsm/redis"
	fsmsql "github.com/hrygo/maxbot/fsm/sql"
	"github.com/hrygo/maxbot/longpoll"
	"github.com/hrygo/maxbot/metrics"
	"github.com/hrygo/maxbot/webhook"
)

var rootCmd = &cobra.Command{
	Use:   "maxbot",
	Short: "Run a bot instance against the MAX messaging platform.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		return nil
	},
	RunE: run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of operation, "dev", "demo" or "prod"`)
	flags.String("token", "", "bot API token")
	flags.String("base-url", "https://botapi.max.ru", "platform API base URL")
	flags.String("storage", "memory", "fsm storage driver: memory, redis, postgres, sqlite")
	flags.String("dsn", "", "DSN for the redis/postgres/sqlite storage driver")
	flags.String("key-prefix", "maxbot", "key prefix used by the redis storage driver")
	flags.String("ingest", "longpoll", "update ingestion mode: longpoll or webhook")
	flags.String("addr", ":8080", "webhook listen address")
	flags.String("webhook-path", "/", "webhook receiver path")
	flags.Bool("skip-updates", true, "discard updates older than process start")
	flags.Bool("auto-requests", true, "enrich every update with its full chat and acting user before dispatch")
	flags.Bool("concurrent", false, "dispatch long-poll updates concurrently")
	flags.Int("max-concurrent", 0, "bound on in-flight concurrent handlers (0 = unbounded)")
	flags.String("metrics-addr", ":9090", "address to serve /metrics on, empty disables it")

	for _, name := range []string{
		"mode", "token", "base-url", "storage", "dsn", "key-prefix",
		"ingest", "addr", "webhook-path", "skip-updates", "auto-requests", "concurrent",
		"max-concurrent", "metrics-addr",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("maxbot")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func run(_ *cobra.Command, _ []string) error {
	profile := &maxbotconfig.Profile{
		Mode:          viper.GetString("mode"),
		Token:         viper.GetString("token"),
		BaseURL:       viper.GetString("base-url"),
		Storage:       maxbotconfig.StorageDriver(viper.GetString("storage")),
		DSN:           viper.GetString("dsn"),
		KeyPrefix:     viper.GetString("key-prefix"),
		Ingest:        maxbotconfig.IngestMode(viper.GetString("ingest")),
		Addr:          viper.GetString("addr"),
		WebhookPath:   viper.GetString("webhook-path"),
		SkipUpdates:   viper.GetBool("skip-updates"),
		AutoRequests:  viper.GetBool("auto-requests"),
		Concurrent:    viper.GetBool("concurrent"),
		MaxConcurrent: viper.GetInt("max-concurrent"),
		MetricsAddr:   viper.GetString("metrics-addr"),
	}
	profile.FromEnv()
	if err := profile.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, closeStorage, err := newStorage(ctx, profile)
	if err != nil {
		return fmt.Errorf("maxbot: build storage: %w", err)
	}
	defer closeStorage()

	client := bot.New(profile.BaseURL, profile.Token)
	recorder := metrics.New(metrics.DefaultConfig())

	d := dispatcher.New(storage)
	d.UseMetrics(recorder)

	// Register application routers here, e.g. d.Include(myRouter), before
	// Ready is called.
	if err := d.Ready(ctx); err != nil {
		return fmt.Errorf("maxbot: dispatcher startup: %w", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, terminationSignals...)

	errCh := make(chan error, 1)

	if profile.MetricsAddr != "" {
		metricsSrv := &http.Server{Addr: profile.MetricsAddr, Handler: recorder.Handler()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("maxbot: metrics server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = metricsSrv.Shutdown(context.Background())
		}()
	}

	switch profile.Ingest {
	case maxbotconfig.IngestWebhook:
		srv := webhook.New(client, d).Listen(profile.WebhookPath)
		srv.AutoRequests = profile.AutoRequests
		go func() { errCh <- srv.Start(ctx, profile.Addr) }()
	default:
		driver := &longpoll.Driver{
			Bot:           client,
			Handler:       d,
			SkipUpdates:   profile.SkipUpdates,
			AutoRequests:  profile.AutoRequests,
			Concurrent:    profile.Concurrent,
			MaxConcurrent: profile.MaxConcurrent,
		}
		go func() { errCh <- driver.Run(ctx) }()
	}

	printGreeting(profile)

	select {
	case <-c:
		cancel()
	case err := <-errCh:
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return nil
}

func newStorage(ctx context.Context, profile *maxbotconfig.Profile) (fsm.Storage, func(), error) {
	switch profile.Storage {
	case maxbotconfig.StorageRedis:
		opts, err := goredis.ParseURL(profile.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis DSN: %w", err)
		}
		client := goredis.NewClient(opts)
		storage := fsmredis.New(client, fsmredis.WithPrefix(profile.KeyPrefix))
		return storage, func() { _ = storage.Close() }, nil

	case maxbotconfig.StoragePostgres:
		db, err := sql.Open("postgres", profile.DSN)
		if err != nil {
			return nil, nil, err
		}
		storage, err := fsmsql.New(ctx, db, fsmsql.DriverPostgres)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() { _ = storage.Close() }, nil

	case maxbotconfig.StorageSQLite:
		db, err := sql.Open("sqlite", profile.DSN)
		if err != nil {
			return nil, nil, err
		}
		storage, err := fsmsql.New(ctx, db, fsmsql.DriverSQLite)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() { _ = storage.Close() }, nil

	default:
		storage := fsmmemory.New()
		return storage, func() { _ = storage.Close() }, nil
	}
}

func printGreeting(profile *maxbotconfig.Profile) {
	fmt.Printf("maxbot %s started\n", version.String())
	fmt.Printf("%s\n", profile.String())
	if profile.IsDev() {
		fmt.Fprintln(os.Stderr, "Development mode is enabled")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("maxbot: fatal", "error", err)
		os.Exit(1)
	}
}
