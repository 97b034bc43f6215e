package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/bjaus/flatjson"
	"github.com/bjaus/flatjson/internal/config"
	"github.com/bjaus/flatjson/internal/job"
	"github.com/bjaus/flatjson/internal/logging"
	"github.com/bjaus/flatjson/internal/metrics"
	"github.com/bjaus/flatjson/internal/queue"
	"github.com/bjaus/flatjson/internal/storage"
	"github.com/bjaus/flatjson/internal/worker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWorkerCmd(fs afero.Fs) *cobra.Command {
	cfg := config.Load()
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Convert documents announced on an SQS queue",
		Long: "Poll an SQS queue for S3 object notifications. Each referenced document is downloaded from the " +
			"input bucket, flattened, and uploaded to the output bucket. Flags default to the environment: " +
			config.EnvInputBucket + ", " + config.EnvOutputBucket + ", " + config.EnvQueue + ", " + config.EnvRegion +
			", and the UNBUNDLER_* variables.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed(logging.Flag) {
				level, err := cmd.Flags().GetString(logging.Flag)
				if err != nil {
					return err
				}
				cfg.Log.Level = level
			}
			return runWorker(cmd.Context(), fs, cfg, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Storage.Region, "region", cfg.Storage.Region, "AWS region")
	flags.StringVar(&cfg.Storage.InputBucket, "input-bucket", cfg.Storage.InputBucket, "bucket the documents are read from")
	flags.StringVar(&cfg.Storage.OutputBucket, "output-bucket", cfg.Storage.OutputBucket, "bucket the tables are written to")
	flags.StringVar(&cfg.Storage.OutputPrefix, "output-prefix", cfg.Storage.OutputPrefix, "key prefix of the uploaded tables")
	flags.StringVar(&cfg.Storage.WorkDir, "work-dir", cfg.Storage.WorkDir, "local directory for documents being converted")

	flags.StringVar(&cfg.Queue.Name, "queue", cfg.Queue.Name, "name of the SQS queue")
	flags.Int32Var(&cfg.Queue.MaxMessages, "max-messages", cfg.Queue.MaxMessages, "messages received per poll (1-10)")
	flags.DurationVar(&cfg.Queue.WaitTime, "wait-time", cfg.Queue.WaitTime, "long poll wait time")
	flags.DurationVar(&cfg.Queue.VisibilityTimeout, "visibility-timeout", cfg.Queue.VisibilityTimeout, "time a received message stays hidden from other consumers")

	flags.StringVarP(&cfg.Flatten.Format, "format", "f", cfg.Flatten.Format, "output format")
	flags.StringVar(&cfg.Flatten.Separator, "separator", cfg.Flatten.Separator, "separator between key path segments in column names")
	flags.StringVar(&cfg.Flatten.Arrays, "arrays", cfg.Flatten.Arrays, "array handling: index or json")
	flags.StringVar(&cfg.Flatten.Path, "path", cfg.Flatten.Path, "path of the value to unbundle into rows")
	flags.BoolVar(&cfg.Flatten.StripNewlines, "strip-newlines", cfg.Flatten.StripNewlines, "remove line breaks from string values")
	flags.BoolVar(&cfg.Flatten.Index, "index", cfg.Flatten.Index, "prepend a row index column")

	flags.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "address to serve Prometheus metrics on, e.g. :9090; empty disables")
	flags.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "also write logs to this file, rotated by size")

	return cmd
}

func runWorker(ctx context.Context, fs afero.Fs, cfg config.Config, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Out: stderr, File: cfg.Log.File})

	format, err := flatjson.ParseFormat(cfg.Flatten.Format)
	if err != nil {
		return err
	}
	opts, err := cfg.Flatten.FlattenOptions()
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}
	q, err := queue.New(ctx, sqs.NewFromConfig(awsCfg), cfg.Queue.Name, queue.Options{
		MaxMessages:       cfg.Queue.MaxMessages,
		WaitTime:          cfg.Queue.WaitTime,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
	}, log.With("component", "queue"))
	if err != nil {
		return err
	}
	store := storage.New(s3.NewFromConfig(awsCfg), log.With("component", "storage"))
	conv := job.NewConverter(fs, format, opts, cfg.Flatten.WriteOptions(), log.With("component", "converter"))
	m := metrics.New()

	w := worker.New(q, store, conv, fs, worker.Options{
		InputBucket:  cfg.Storage.InputBucket,
		OutputBucket: cfg.Storage.OutputBucket,
		OutputPrefix: cfg.Storage.OutputPrefix,
		WorkDir:      cfg.Storage.WorkDir,
	}, m, log)

	return serve(ctx, w, cfg.Metrics.Addr, m.Handler(), log)
}

// serve runs the worker and, when addr is set, the metrics server until the
// worker returns.
func serve(ctx context.Context, w *worker.Worker, addr string, handler http.Handler, log *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		return w.Run(ctx)
	})

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("Serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving metrics: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
