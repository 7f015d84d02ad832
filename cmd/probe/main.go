package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"persona-probe/internal/config"
	"persona-probe/internal/db"
	"persona-probe/internal/domain"
	"persona-probe/internal/email"
	"persona-probe/internal/export"
	"persona-probe/internal/llm"
	"persona-probe/internal/repository"
	"persona-probe/internal/service"
	"persona-probe/internal/taxonomy"
)

func main() {
	experimentPath := flag.String("experiment", "experiment.yaml", "archivo YAML con la matriz del experimento")
	resultsDir := flag.String("results", "", "directorio de salida (pisa RESULTS_DIR)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *resultsDir != "" {
		cfg.ResultsDir = *resultsDir
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	exp, err := config.LoadExperiment(*experimentPath)
	if err != nil {
		logger.Fatal("experiment", zap.String("path", *experimentPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var limiter llm.Limiter
	if cfg.RedisAddr != "" && cfg.RateLimitMax > 0 {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, rate limit disabled", zap.Error(err))
		} else {
			limiter = llm.NewRedisLimiter(redisClient, cfg.RateLimitWindow(), cfg.RateLimitMax, logger)
		}
		cancel()
	}

	registry, err := llm.BuildRegistry(ctx, exp.ModelSpecs(), llm.Credentials{
		OpenAIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GroqKey:       cfg.GroqAPIKey,
		GroqBaseURL:   cfg.GroqBaseURL,
		LocalBaseURL:  cfg.LocalBaseURL,
		GeminiKey:     cfg.GeminiAPIKey,
		MockResponse:  cfg.MockResponse,
	}, llm.BuildOptions{
		Timeout:    cfg.LLMTimeout(),
		MaxRetries: cfg.LLMMaxRetries,
		RetryDelay: cfg.LLMRetryDelay(),
		Limiter:    limiter,
	}, logger)
	if err != nil {
		logger.Fatal("llm registry", zap.Error(err))
	}
	judgeGateway, err := registry.Get(exp.Judge.Name)
	if err != nil {
		logger.Fatal("judge gateway", zap.Error(err))
	}

	tax := taxonomy.Default()
	if len(exp.Questions) > 0 {
		tax = tax.WithQuestions(exp.Questions)
	}
	if err := tax.Validate(); err != nil {
		logger.Fatal("taxonomy", zap.Error(err))
	}

	thresholds := service.Thresholds{LowMax: cfg.LowMax, MediumMax: cfg.MediumMax}
	if err := thresholds.Validate(); err != nil {
		logger.Fatal("thresholds", zap.Error(err))
	}
	metric, err := service.NewSimilarityMetric(cfg.SimilarityMetric, cfg.RemoveStopWords)
	if err != nil {
		logger.Fatal("similarity metric", zap.Error(err))
	}

	expCfg := service.DefaultExperimentConfig()
	expCfg.Workers = cfg.Workers
	expCfg.MaxFailureRatio = cfg.MaxFailureRatio
	expCfg.MinTrialsForAbort = cfg.MinTrialsForAbort
	expCfg.AbortOnThreshold = cfg.AbortOnThreshold
	expCfg.Generation = exp.Generation.Apply(expCfg.Generation)
	expCfg.Questionnaire = exp.Questionnaire.Apply(expCfg.Questionnaire)

	experiments := service.NewExperimentService(tax, registry, expCfg, logger)
	judge := service.NewJudgeService(judgeGateway, service.NewPromptBuilder(tax), exp.JudgeSampling.Apply(llm.GenerateConfig{Temperature: 0, MaxTokens: 256}), logger)
	labeler := service.NewLabeler(judge, service.NewQuestionnaireScorer(tax, thresholds), cfg.Workers, logger)
	pipeline := service.NewPipeline(experiments, labeler, service.NewAnalysisService(metric), thresholds, logger)

	pipeline.AddSink(export.NewCSVSink(cfg.ResultsDir, tax, logger))
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		pipeline.AddSink(repository.NewPostgresSink(pool, service.Tokenizer{RemoveStopWords: cfg.RemoveStopWords}, db.LexicalDims, logger))
	}

	var sender email.Sender = email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		smtpSender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			sender = smtpSender
		}
	}
	pipeline.SetNotifier(email.NewRunNotifier(sender, cfg.NotifyEmail, logger))

	logger.Info("starting run",
		zap.String("experiment", *experimentPath),
		zap.Strings("models", registry.Names()),
		zap.String("judge", exp.Judge.Name),
		zap.Int("workers", cfg.Workers),
	)

	report, err := pipeline.Execute(ctx, exp.Plan())
	if report == nil {
		logger.Fatal("run failed", zap.Error(err))
	}

	s := report.Summary
	logger.Info("run finished",
		zap.String("run_id", s.RunID),
		zap.String("status", string(s.Status)),
		zap.Int("total_trials", s.TotalTrials),
		zap.Int("failures", s.Failures),
		zap.Float64("failure_ratio", s.FailureRatio()),
		zap.Int("unclassifiable", s.Unclassifiable),
		zap.Int("unparsed_answers", s.UnparsedAnswers),
		zap.Strings("warnings", s.Warnings),
		zap.Any("sink_errors", report.SinkErrors),
	)

	if code := exitCode(report, err, logger); code != 0 {
		_ = logger.Sync()
		os.Exit(code)
	}
}

// exitCode: 2 si la corrida se aborto, 1 si se interrumpio o fallo algun sink.
func exitCode(report *service.Report, err error, logger *zap.Logger) int {
	switch {
	case errors.Is(err, domain.ErrRunAborted):
		return 2
	case err != nil:
		logger.Error("run interrupted", zap.Error(err))
		return 1
	case len(report.SinkErrors) > 0:
		return 1
	}
	return 0
}

// newLogger arma el logger segun LOG_FORMAT (json o console) y LOG_LEVEL.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}
