package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/Sternrassler/buscador-adesoes/pkg/catalog"
	"github.com/Sternrassler/buscador-adesoes/pkg/client"
	"github.com/Sternrassler/buscador-adesoes/pkg/logging"
	"github.com/Sternrassler/buscador-adesoes/pkg/metrics"
	"github.com/Sternrassler/buscador-adesoes/pkg/pagination"
	"github.com/Sternrassler/buscador-adesoes/pkg/search"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

type options struct {
	kind        string
	item        string
	code        string
	federalOnly bool
	list        string
	verbose     bool
	concurrency int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("buscador", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.kind, "tipo", "", "tipo de item: material ou servico")
	fs.StringVar(&opts.item, "item", "", "nome do item no catálogo")
	fs.StringVar(&opts.code, "codigo", "", "código do item (dispensa -item)")
	fs.BoolVar(&opts.federalOnly, "federal", true, "buscar somente atas da esfera federal")
	fs.StringVar(&opts.list, "listar", "", "lista os itens do catálogo que contêm o termo e sai")
	fs.BoolVar(&opts.verbose, "v", false, "mostra o progresso das páginas")
	fs.IntVar(&opts.concurrency, "concorrencia", 0, "requisições simultâneas (padrão MAX_CONCURRENCY ou 4)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.kind == "" {
		return opts, errors.New("-tipo é obrigatório (material ou servico)")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}

	logCfg := logging.ConfigFromEnv(getenv)
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	kind, err := ata.ParseItemKind(opts.kind)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	source, closeSource := newCatalogSource(ctx, getenv, logger)
	defer closeSource()

	if opts.list != "" {
		return listItems(ctx, source, kind, opts.list, stdout, stderr)
	}

	code, err := resolveCode(ctx, source, kind, opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if addr := getenv("METRICS_ADDR"); addr != "" {
		srv := startMetricsServer(addr, logger)
		defer srv.Close()
	}

	clientCfg := client.DefaultConfig(getEnv(getenv, "USER_AGENT", "buscador-adesoes/1.0"))
	clientCfg.BaseURL = getEnv(getenv, "ARP_BASE_URL", client.DefaultBaseURL)
	clientCfg.RateLimit = getEnvFloat(getenv, "ARP_RATE_LIMIT", 0)
	clientCfg.InsecureTLS = getEnvBool(getenv, "ARP_INSECURE_TLS", false)

	arpClient, err := client.New(clientCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create ARP client")
		return exitFailure
	}
	defer arpClient.Close()

	fetchCfg := pagination.DefaultConfig()
	fetchCfg.MaxConcurrency = getEnvInt(getenv, "MAX_CONCURRENCY", fetchCfg.MaxConcurrency)
	if opts.concurrency > 0 {
		fetchCfg.MaxConcurrency = opts.concurrency
	}
	fetchCfg.Timeout = clientCfg.Timeout

	orchestrator := search.New(pagination.NewFetcher(arpClient, fetchCfg), source, search.DefaultConfig())

	presenter := &search.TextPresenter{Out: stdout, Verbose: opts.verbose}
	out := orchestrator.Run(ctx, search.Request{
		Kind:        kind,
		Code:        code,
		FederalOnly: opts.federalOnly,
	}, presenter)

	if out.Status == search.StatusFailure {
		return exitFailure
	}
	return exitOK
}

func newCatalogSource(ctx context.Context, getenv func(string) string, logger zerolog.Logger) (catalog.Source, func()) {
	files := catalog.NewFileSource(getEnv(getenv, "CATALOG_DIR", "."))

	redisURL := getenv("REDIS_URL")
	if redisURL == "" {
		return files, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis", redisURL).Msg("Redis unavailable, reading catalogs from files")
		redisClient.Close()
		return files, func() {}
	}

	ttl := getEnvDuration(getenv, "CATALOG_TTL", 24*time.Hour)
	logger.Debug().Str("redis", redisURL).Dur("ttl", ttl).Msg("Catalog cache enabled")
	return catalog.NewRedisSource(redisClient, files, ttl), func() { redisClient.Close() }
}

func resolveCode(ctx context.Context, source catalog.Source, kind ata.ItemKind, opts options) (string, error) {
	if code := strings.TrimSpace(opts.code); code != "" {
		return code, nil
	}
	if strings.TrimSpace(opts.item) == "" {
		return "", errors.New(search.MsgNoItem)
	}

	items, err := source.Catalog(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("catálogo indisponível: %w", err)
	}
	return items.Code(opts.item)
}

func listItems(ctx context.Context, source catalog.Source, kind ata.ItemKind, term string, stdout, stderr io.Writer) int {
	items, err := source.Catalog(ctx, kind)
	if err != nil {
		fmt.Fprintf(stderr, "catálogo indisponível: %v\n", err)
		return exitFailure
	}
	for _, name := range items.Search(term) {
		fmt.Fprintf(stdout, "%s\t%s\n", items[name], name)
	}
	return exitOK
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(getenv func(string) string, key string, defaultValue int) int {
	if n, err := strconv.Atoi(getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBool(getenv func(string) string, key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
