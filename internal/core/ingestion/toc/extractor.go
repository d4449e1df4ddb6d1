package toc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jinford/textbook-rag/internal/core/document"
)

const (
	// DefaultTocScanPages は印刷目次を探す先頭ページ数
	DefaultTocScanPages = 25
	// DefaultHeadingFontSize は見出しとみなすフォントサイズの下限
	DefaultHeadingFontSize = 14.0
)

// DefaultStrategies は優先順に並んだ標準の抽出方式
func DefaultStrategies() []Strategy {
	return []Strategy{
		OutlineStrategy(),
		TocPagesStrategy(DefaultTocScanPages),
		HeadingStrategy(DefaultHeadingFontSize),
	}
}

// Extractor は抽出方式を優先順に試し、最初に空でない結果を採用する
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

type extractorOptions struct {
	strategies []Strategy
	logger     *slog.Logger
}

// ExtractorOption は Extractor のオプション設定
type ExtractorOption func(*extractorOptions)

// WithExtractorLogger はロガーを設定する
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(o *extractorOptions) {
		o.logger = logger
	}
}

// WithStrategies は抽出方式の並びを差し替える
func WithStrategies(strategies ...Strategy) ExtractorOption {
	return func(o *extractorOptions) {
		o.strategies = strategies
	}
}

// NewExtractor は新しい Extractor を作成する
func NewExtractor(opts ...ExtractorOption) *Extractor {
	options := extractorOptions{
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return &Extractor{strategies: options.strategies, logger: options.logger}
}

// Extract は目次とページ対応表を抽出する。
// どの方式でも項目が得られなかった場合は Method が MethodNone の結果を返す。
// 個々の方式の失敗は空結果として扱い、次の方式に進む。
func (e *Extractor) Extract(ctx context.Context, doc document.Document) (*Result, error) {
	result := &Result{Method: MethodNone}

	for _, s := range e.strategies {
		items, err := e.run(ctx, s, doc)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("toc extraction cancelled: %w", ctxErr)
		}
		if err != nil {
			e.logger.Warn("toc strategy failed", "method", s.Method, "error", err)
			continue
		}
		if len(items) > 0 {
			result.Method = s.Method
			result.Items = items
			break
		}
	}

	result.PageMapping = ComputePageMapping(ctx, doc)
	result.Validation = Validate(result.Items, result.PageMapping)

	e.logger.Info("toc extracted",
		"method", result.Method,
		"items", len(result.Items),
		"mappedPages", len(result.PageMapping),
	)
	for _, v := range result.Validation {
		e.logger.Debug("toc validation sample", "title", v.Title, "printed", v.Printed, "pdf", v.PDF)
	}

	return result, nil
}

// run は PDF パーサの panic を方式の失敗として回収する
func (e *Extractor) run(ctx context.Context, s Strategy, doc document.Document) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("panic in %s strategy: %v", s.Method, r)
		}
	}()
	return s.Extract(ctx, doc)
}

// UseSynthetic は結果を合成グリッド目次に置き換える
func (r *Result) UseSynthetic(pageCount int) {
	r.Method = MethodSyntheticGrid
	r.Items = SyntheticGrid(pageCount)
	r.Validation = Validate(r.Items, r.PageMapping)
}

// WriteDebugFile は抽出結果を <dir>/<code>.json に書き出す
func WriteDebugFile(dir, code string, result *Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create toc debug dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal toc result: %w", err)
	}
	path := filepath.Join(dir, code+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write toc debug file: %w", err)
	}
	return path, nil
}
