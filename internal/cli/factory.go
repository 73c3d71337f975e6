package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/openstars/internal/config"
	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/pkg/adapters/analysis"
	"github.com/aretw0/openstars/pkg/adapters/memory"
	"github.com/aretw0/openstars/pkg/adapters/notify"
	"github.com/aretw0/openstars/pkg/adapters/payment"
	redisguard "github.com/aretw0/openstars/pkg/adapters/redis"
	"github.com/aretw0/openstars/pkg/catalog"
	"github.com/aretw0/openstars/pkg/observability"
	"github.com/aretw0/openstars/pkg/orchestrator"
	"github.com/aretw0/openstars/pkg/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App is a fully wired concierge.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *prometheus.Registry
	Config       config.Config

	closers []func() error
}

// Close stops the orchestrator and releases the clients it was built with.
func (a *App) Close() error {
	errs := []error{a.Orchestrator.Close()}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires the engine, adapters and metrics described by cfg.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fail := func(err error) (*App, error) {
		for i := len(app.closers) - 1; i >= 0; i-- {
			_ = app.closers[i]()
		}
		return nil, err
	}

	seed := cfg.Dialogue.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	random := runtime.NewRandom(seed)

	engineOpts := []runtime.Option{
		runtime.WithRandom(random),
		runtime.WithSampleSize(cfg.Dialogue.SampleSize),
		runtime.WithContinuationDelay(cfg.Pacing.Continuation),
		runtime.WithFallbackIndustry(cfg.Dialogue.FallbackIndustry),
		runtime.WithPrice(cfg.Dialogue.PriceCents, cfg.Dialogue.Currency),
	}
	if cfg.Dialogue.CatalogPath != "" {
		cat, err := catalog.Load(cfg.Dialogue.CatalogPath)
		if err != nil {
			return fail(fmt.Errorf("load catalog: %w", err))
		}
		engineOpts = append(engineOpts, runtime.WithCatalog(cat))
	}
	engine := runtime.NewEngine(engineOpts...)

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, rdb.Close)
	}

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fail(fmt.Errorf("load aws config: %w", err))
		}
		awsCfg = loaded
	}

	analyzer, err := buildAnalyzer(cfg, logger)
	if err != nil {
		return fail(err)
	}
	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return fail(err)
	}
	notifier, err := buildNotifier(cfg, rdb, awsCfg, logger)
	if err != nil {
		return fail(err)
	}

	var guard ports.ChargeGuard = memory.NewChargeGuard(cfg.Guard.TTL)
	if cfg.Guard.Provider == config.GuardRedis {
		guard = redisguard.NewFromClient(rdb, redisguard.WithTTL(cfg.Guard.TTL))
	}

	metrics := observability.NewMetrics(app.Registry)
	app.Orchestrator = orchestrator.New(engine,
		orchestrator.WithLogger(logger),
		orchestrator.WithHooks(metrics.Hooks()),
		orchestrator.WithHooks(observability.AuditHooks(logger)),
		orchestrator.WithAnalyzer(analyzer),
		orchestrator.WithPaymentGateway(gateway),
		orchestrator.WithNotifier(notifier),
		orchestrator.WithChargeGuard(guard),
		orchestrator.WithRandom(random),
		orchestrator.WithComposeDelay(cfg.Pacing.ComposeMin, cfg.Pacing.ComposeMax),
		orchestrator.WithTimeouts(orchestrator.Timeouts{
			Analyze: cfg.Timeouts.Analyze,
			Charge:  cfg.Timeouts.Charge,
			Notify:  cfg.Timeouts.Notify,
		}),
		orchestrator.WithInboxSize(cfg.Server.InboxSize),
		orchestrator.WithMaxInputSize(cfg.Server.MaxInputSize),
	)

	logger.Info("Concierge ready",
		"analyzer", cfg.Analyzer.Provider,
		"payment", cfg.Payment.Provider,
		"notify", cfg.Notify.Channels(),
		"guard", cfg.Guard.Provider)
	return app, nil
}

// buildAnalyzer always falls back to the keyword analyzer so the engine
// receives a label whenever one can be derived locally.
func buildAnalyzer(cfg config.Config, logger *slog.Logger) (ports.Analyzer, error) {
	keyword := analysis.NewKeywordAnalyzer()
	switch cfg.Analyzer.Provider {
	case config.AnalyzerKeyword:
		return keyword, nil
	case config.AnalyzerHTTP:
		remote := analysis.NewHTTPAnalyzer(cfg.Analyzer.Endpoint, cfg.Analyzer.APIKey, logger)
		return analysis.WithFallback(remote, keyword, cfg.Timeouts.Analyze, logger), nil
	}
	return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Analyzer.Provider)
}

func buildGateway(cfg config.Config, logger *slog.Logger) (ports.PaymentGateway, error) {
	switch cfg.Payment.Provider {
	case config.PaymentFake:
		mode, err := payment.ParseMode(cfg.Payment.Mode)
		if err != nil {
			return nil, err
		}
		return payment.NewFakeGateway(mode, logger), nil
	case config.PaymentHTTP:
		return payment.NewHTTPGateway(cfg.Payment.BaseURL, cfg.Payment.APIKey, logger), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
}

// buildNotifier wraps each channel in retries and fans the lead out to all of them.
func buildNotifier(cfg config.Config, rdb *redis.Client, awsCfg aws.Config, logger *slog.Logger) (ports.Notifier, error) {
	email := notify.EmailConfig{
		FromEmail: cfg.Notify.FromEmail,
		FromName:  cfg.Notify.FromName,
		To:        cfg.Notify.To,
	}

	var fanout notify.Fanout
	for _, name := range cfg.Notify.Channels() {
		var n ports.Notifier
		switch name {
		case config.NotifyLog:
			masked, err := notify.NewMasking(notify.NewLogNotifier(logger), cfg.Notify.Mask())
			if err != nil {
				return nil, err
			}
			fanout = append(fanout, masked)
			continue
		case config.NotifySendGrid:
			n = notify.NewSendGridNotifier(cfg.Notify.SendGridKey, email, logger)
		case config.NotifySES:
			client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
				if cfg.AWS.Endpoint != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
				}
			})
			n = notify.NewSESNotifier(client, email, logger)
		case config.NotifySQS:
			client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
				if cfg.AWS.Endpoint != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
				}
			})
			n = notify.NewSQSNotifier(client, cfg.Notify.QueueURL, logger)
		case config.NotifyRedis:
			n = notify.NewRedisNotifier(rdb, cfg.Notify.RedisKey, logger)
		default:
			return nil, fmt.Errorf("unknown notify provider %q", name)
		}
		fanout = append(fanout, notify.NewRetrying(n, logger).WithMaxAttempts(cfg.Notify.MaxAttempts))
	}

	if len(fanout) == 1 {
		return fanout[0], nil
	}
	return fanout, nil
}
