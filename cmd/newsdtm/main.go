package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/newsdtm/internal/nlpservice"
	"github.com/cognicore/newsdtm/pkg/newsdtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/artifact"
	"github.com/cognicore/newsdtm/pkg/newsdtm/config"
	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/ingest"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma"
	"github.com/cognicore/newsdtm/pkg/newsdtm/observability"
	"github.com/cognicore/newsdtm/pkg/newsdtm/sentiment"
	"github.com/cognicore/newsdtm/pkg/newsdtm/store/sqlite"
)

// options are the resolved settings of one invocation.
type options struct {
	Input        string
	RulesPath    string
	StoplistPath string
	LexiconPath  string
	OutputDir    string
	DBPath       string
	S3Bucket     string
	S3Prefix     string
	AnalyzerURL  string
	SentimentURL string
	EmotionURL   string
	Workers      int
	FillPolicy   string
	MetricsFile  string

	env *config.Env
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts, err := parseFlags(os.Args[1:], env)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	logger := newLogger(env.AppEnv, env.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, &logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("run cancelled")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("run failed")
	}
}

// parseFlags reads command-line flags; env values are the defaults.
func parseFlags(args []string, env *config.Env) (options, error) {
	o := options{env: env}
	fs := flag.NewFlagSet("newsdtm", flag.ContinueOnError)
	fs.StringVar(&o.Input, "input", "", "Directory of raw JSON payloads (required)")
	fs.StringVar(&o.RulesPath, "rules", "", "Rules file (optional, built-in Spanish rules if empty)")
	fs.StringVar(&o.StoplistPath, "stoplist", "", "Stoplist file (optional)")
	fs.StringVar(&o.LexiconPath, "lexicon", "", "Lemma lexicon file (optional)")
	fs.StringVar(&o.OutputDir, "out", env.OutputDir, "Artifact output directory")
	fs.StringVar(&o.DBPath, "db", env.DBPath, "SQLite database path (optional)")
	fs.StringVar(&o.S3Bucket, "s3-bucket", env.S3Bucket, "Upload artifacts to this S3 bucket (optional)")
	fs.StringVar(&o.S3Prefix, "s3-prefix", env.S3Prefix, "Key prefix for uploaded artifacts")
	fs.StringVar(&o.AnalyzerURL, "analyzer-url", env.AnalyzerURL, "Tokenizer/lemmatizer service URL (optional)")
	fs.StringVar(&o.SentimentURL, "sentiment-url", env.SentimentURL, "Sentiment classifier URL (optional)")
	fs.StringVar(&o.EmotionURL, "emotion-url", env.EmotionURL, "Emotion classifier URL (optional)")
	fs.IntVar(&o.Workers, "workers", env.Workers, "Concurrent model calls")
	fs.StringVar(&o.FillPolicy, "fill-policy", "", "Outlet matrix columns: omit or cross_product (overrides rules)")
	fs.StringVar(&o.MetricsFile, "metrics-file", env.MetricsFile, "Write Prometheus textfile metrics here (optional)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if o.Input == "" {
		return options{}, fmt.Errorf("--input required")
	}
	if o.Workers < 1 {
		return options{}, fmt.Errorf("--workers must be positive")
	}
	if o.FillPolicy != "" {
		if _, err := dtm.ParseFillPolicy(o.FillPolicy); err != nil {
			return options{}, err
		}
	}
	if (o.SentimentURL == "") != (o.EmotionURL == "") {
		return options{}, fmt.Errorf("--sentiment-url and --emotion-url must be set together")
	}
	return o, nil
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// buildPipeline wires configuration, collaborators, sinks and store.
func buildPipeline(ctx context.Context, o options, logger *zerolog.Logger) (*newsdtm.Pipeline, error) {
	loader := config.Loader{
		RulesPath:    o.RulesPath,
		StoplistPath: o.StoplistPath,
		LexiconPath:  o.LexiconPath,
		Logger:       logger,
	}
	comp, err := loader.Load()
	if err != nil {
		return nil, err
	}

	policy := comp.FillPolicy
	if o.FillPolicy != "" {
		if policy, err = dtm.ParseFillPolicy(o.FillPolicy); err != nil {
			return nil, err
		}
	}

	apiKey := ""
	if o.env != nil {
		apiKey = o.env.APIKey
	}

	var model lemma.Model = comp.Model
	modelName := "lexmodel"
	if o.AnalyzerURL != "" {
		model = nlpservice.NewAnalyzer(nlpservice.Client{BaseURL: o.AnalyzerURL, APIKey: apiKey})
		modelName = "analyzer"
	}

	var annotator *sentiment.Annotator
	if o.SentimentURL != "" {
		annotator = sentiment.NewAnnotator(
			nlpservice.NewClassifier(nlpservice.Client{BaseURL: o.SentimentURL, APIKey: apiKey}),
			nlpservice.NewClassifier(nlpservice.Client{BaseURL: o.EmotionURL, APIKey: apiKey}),
			sentiment.Options{Workers: o.Workers, Logger: logger},
		)
	}

	var sinks artifact.MultiSink
	if o.OutputDir != "" {
		sinks = append(sinks, artifact.FileSink{Dir: o.OutputDir})
	}
	if o.S3Bucket != "" {
		s3cfg := artifact.S3Config{Bucket: o.S3Bucket, Prefix: o.S3Prefix}
		if o.env != nil {
			s3cfg.Region = o.env.AWSRegion
			s3cfg.UsePathStyle = o.env.S3PathStyle
		}
		s3sink, err := artifact.NewS3Sink(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3sink)
	}

	popts := newsdtm.Options{
		Ingest:       comp.Ingest,
		Filter:       comp.Filter,
		Normalizer:   comp.Normalizer,
		Model:        model,
		ModelName:    modelName,
		Workers:      o.Workers,
		FillPolicy:   policy,
		TopN:         comp.Rules.EDA.TopN,
		Annotator:    annotator,
		Stoplist:     comp.Stoplist,
		RulesVersion: comp.Rules.Version,
		Logger:       logger,
	}
	if len(sinks) > 0 {
		popts.Sink = sinks
	}
	if o.DBPath != "" {
		st, err := sqlite.OpenSQLite(ctx, o.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		popts.Store = st
	}

	p, err := newsdtm.New(popts)
	if err != nil {
		if popts.Store != nil {
			popts.Store.Close()
		}
		return nil, err
	}
	return p, nil
}

func run(ctx context.Context, o options, logger *zerolog.Logger) error {
	sources, err := ingest.LoadDir(o.Input)
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, o, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Run(ctx, sources)
	if err != nil {
		return err
	}

	for _, c := range report.StopwordCandidates {
		logger.Info().Str("lemma", c.Token).Float64("score", c.Score).Msg("stopword candidate")
	}
	logger.Info().
		Str("run", report.RunID).
		Int("artifacts", len(report.Artifacts)).
		Int("documents", report.Documents()).
		Msg("done")

	if o.MetricsFile != "" {
		if err := observability.WriteTextfile(o.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
