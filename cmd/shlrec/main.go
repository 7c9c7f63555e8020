// Package main is the shlrec CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/cli"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/config"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/embedding"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/ingest"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/metrics"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/recommend"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/server"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/storage"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/vector"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shlrec/config.yaml"

// httpClient is used for --server calls. The timeout covers the whole exchange, including a
// cold engine load on the server.
var httpClient = &http.Client{Timeout: 60 * time.Second}

var (
	configPath string
	debug      bool
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When the default path does not
// exist either, built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads config and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shlrec",
		Short:         "Recommend SHL assessments for a job description by embedding similarity",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newIngestCmd(), newRecommendCmd(), newStatusCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the vector store and start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if port > 0 {
				cfg.Server.Port = port
			}

			embedder, err := embedding.New(cfg.Embedding)
			if err != nil {
				return err
			}
			defer embedder.Close()

			var recorder *metrics.Recorder
			if cfg.Metrics.Enabled {
				recorder = metrics.NewRecorder()
			}
			loader := newEngineLoader(cfg, embedder, recorder, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The store must load before the server accepts queries.
			if _, err := loader.Get(ctx); err != nil {
				return fmt.Errorf("failed to load vector store: %w", err)
			}

			srv := server.NewServer(loader, cfg, recorder, logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}

func newEngineLoader(cfg *config.Config, embedder embedding.Embedder, recorder *metrics.Recorder, logger *zap.Logger) *recommend.Loader {
	return recommend.NewLoader(func(ctx context.Context) (*recommend.Engine, error) {
		return recommend.Open(ctx, cfg.Storage.StoreDir, embedder,
			recommend.WithLogger(logger),
			recommend.WithMetrics(recorder),
			recommend.WithModelName(cfg.Embedding.Model),
		)
	})
}

func newIngestCmd() *cobra.Command {
	var (
		catalogPath string
		storeDir    string
		watch       bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the raw catalog and write the vector store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if catalogPath == "" {
				catalogPath = cfg.Storage.CatalogPath
			}
			if storeDir == "" {
				storeDir = cfg.Storage.StoreDir
			}

			embedder, err := embedding.New(cfg.Embedding)
			if err != nil {
				return err
			}
			defer embedder.Close()

			in := ingest.NewIngestor(embedder,
				ingest.WithLogger(logger),
				ingest.WithBatchSize(cfg.Embedding.BatchSize),
				ingest.WithConcurrency(cfg.Embedding.Concurrency),
				ingest.WithModelName(cfg.Embedding.Model),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				return in.Watch(ctx, catalogPath, storeDir, debounce)
			}
			manifest, err := in.Run(ctx, catalogPath, storeDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d records (%d dimensions) into %s\n",
				manifest.Count, manifest.Dimensions, storeDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "raw catalog (.json or .xlsx); default storage.catalog_path")
	cmd.Flags().StringVar(&storeDir, "store", "", "vector store directory; default storage.store_dir")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-ingest whenever the catalog file changes")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before re-ingesting in --watch mode")
	return cmd
}

func newRecommendCmd() *cobra.Command {
	var (
		serverURL string
		topK      int
		output    string
	)
	cmd := &cobra.Command{
		Use:   "recommend [flags] <job description>",
		Short: "Rank assessments for a job description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			jobDescription := buildJobDescription(args)
			if jobDescription == "" {
				return errors.New("job description cannot be empty")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			req := models.RecommendationRequest{JobDescription: jobDescription}
			if cmd.Flags().Changed("top-k") {
				req.TopK = &topK
			}
			if err := req.Validate(cfg.Recommend.DefaultTopK); err != nil {
				return err
			}

			var response *models.RecommendationResponse
			if serverURL != "" {
				response, err = recommendViaHTTP(cmd.Context(), serverURL, &req)
			} else {
				response, err = recommendLocal(cmd.Context(), cfg, logger, &req)
			}
			if err != nil {
				return err
			}
			return cli.WriteRecommendations(cmd.OutOrStdout(), jobDescription, response, format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server (e.g. http://localhost:8000) instead of loading the store")
	cmd.Flags().IntVar(&topK, "top-k", models.DefaultTopK, "number of results")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func buildJobDescription(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func recommendLocal(ctx context.Context, cfg *config.Config, logger *zap.Logger, req *models.RecommendationRequest) (*models.RecommendationResponse, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	defer embedder.Close()

	engine, err := newEngineLoader(cfg, embedder, nil, logger).Get(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	results, err := engine.Recommend(ctx, req.JobDescription, req.K())
	if err != nil {
		return nil, err
	}
	return &models.RecommendationResponse{
		Recommendations: results,
		QueryTime:       time.Since(started).Milliseconds(),
	}, nil
}

func recommendViaHTTP(ctx context.Context, serverURL string, req *models.RecommendationRequest) (*models.RecommendationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.RecommendationResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// statusResponse is the shape of GET /api/v1/status and of local status output.
type statusResponse struct {
	Records        int        `json:"records"`
	Dimensions     int        `json:"dimensions"`
	SnapshotID     string     `json:"snapshot_id,omitempty"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	DiskUsageBytes *int64     `json:"disk_usage_bytes,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var (
		serverURL string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show vector store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			var st *statusResponse
			if serverURL != "" {
				st, err = statusViaHTTP(cmd.Context(), serverURL)
			} else {
				var cfg *config.Config
				cfg, _, err = loadConfig(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				st, err = localStatus(cfg.Storage.StoreDir)
			}
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), st, format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server instead of reading the store directly")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func localStatus(storeDir string) (*statusResponse, error) {
	store, err := vector.Load(storeDir)
	if err != nil {
		return nil, err
	}
	st := &statusResponse{Records: store.Len(), Dimensions: store.Dimensions()}
	if m := store.Manifest(); m != nil {
		st.SnapshotID = m.SnapshotID
		st.EmbeddingModel = m.EmbeddingModel
		created := m.CreatedAt
		st.CreatedAt = &created
	}
	if usage, err := storage.StoreUsageOf(storeDir); err == nil {
		st.DiskUsageBytes = &usage.TotalBytes
	}
	return st, nil
}

func statusViaHTTP(ctx context.Context, serverURL string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

func writeStatus(w io.Writer, st *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Fprintf(w, "Records:         %d\n", st.Records)
	fmt.Fprintf(w, "Dimensions:      %d\n", st.Dimensions)
	if st.SnapshotID != "" {
		fmt.Fprintf(w, "Snapshot:        %s\n", st.SnapshotID)
	}
	if st.EmbeddingModel != "" {
		fmt.Fprintf(w, "Embedding model: %s\n", st.EmbeddingModel)
	}
	if st.CreatedAt != nil {
		fmt.Fprintf(w, "Created:         %s\n", st.CreatedAt.Format(time.RFC3339))
	}
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:      %d bytes\n", *st.DiskUsageBytes)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shlrec version %s\n", version)
		},
	}
}
