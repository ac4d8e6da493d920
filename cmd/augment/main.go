// Command augment runs one augmentation pass over a single HTML document
// and writes the result, for local use and pipeline scripting.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ruckquest/augmenter"
	"github.com/ruckquest/augmenter/config"
	"github.com/ruckquest/augmenter/gemini"
	"github.com/ruckquest/augmenter/media"
	"github.com/ruckquest/augmenter/models"
	"github.com/ruckquest/augmenter/sitemap"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", getEnv("AUGMENTER_CONFIG", ""), "Path to YAML config file")
	inPath := flag.String("in", "-", "Input HTML file, - for stdin")
	outPath := flag.String("out", "-", "Output HTML file, - for stdout")
	baseURL := flag.String("base-url", "", "Site base URL (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Print the report without writing the document")
	timeout := flag.Duration("timeout", 10*time.Minute, "Pass timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Site.BaseURL = *baseURL
	}
	if cfg.Site.BaseURL == "" {
		logger.Error("base URL is required (-base-url, AUGMENTER_BASE_URL, or config file)")
		os.Exit(1)
	}
	if cfg.Gemini.APIKey == "" {
		logger.Error("Gemini API key is required (GEMINI_API_KEY or config file)")
		os.Exit(1)
	}

	doc, err := readInput(*inPath)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pages, err := sitemap.NewClient(nil).Pages(ctx, cfg.SitemapURL())
	if err != nil {
		logger.Error("failed to discover pages", "error", err)
		os.Exit(1)
	}
	logger.Info("discovered pages", "count", len(pages))

	suggester, err := newSuggester(ctx, cfg)
	if err != nil {
		logger.Error("failed to create suggester", "error", err)
		os.Exit(1)
	}
	defer suggester.Close()

	engine := augmenter.New(augmenter.Config{
		WindowWords:    cfg.Engine.WindowWords,
		SuggestWorkers: cfg.Engine.SuggestWorkers,
	}, suggester, pages)

	start := time.Now()
	out, report, err := engine.Augment(ctx, doc)
	if err != nil {
		logger.Error("augmentation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("augmentation complete",
		"applied", len(report.Applied),
		"dropped", len(report.Dropped),
		"windows", report.Windows,
		"duration", time.Since(start).String(),
	)

	if *dryRun {
		printReport(report)
		return
	}

	if err := writeOutput(*outPath, out); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}

func newSuggester(ctx context.Context, cfg *config.Config) (*gemini.Suggester, error) {
	var uploader *media.WordPressUploader
	if cfg.WordPress.Username != "" {
		uploader = media.NewWordPressUploader(cfg.Site.BaseURL, cfg.WordPress.Username, cfg.WordPress.AppPassword, nil)
	}
	var images *media.GetImgClient
	if cfg.GetImg.APIKey != "" {
		images = media.NewGetImgClient(cfg.GetImg.APIKey, cfg.GetImg.APIURL, &http.Client{Timeout: 2 * time.Minute})
	}
	var videos *media.SerperClient
	if cfg.Serper.APIKey != "" {
		videos = media.NewSerperClient(cfg.Serper.APIKey, "", nil)
	}

	return gemini.NewSuggester(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, media.NewResolver(images, videos, uploader))
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func writeOutput(path, doc string) error {
	if path == "-" {
		_, err := io.WriteString(os.Stdout, doc)
		return err
	}
	return os.WriteFile(path, []byte(doc), 0644)
}

func printReport(report *models.Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
