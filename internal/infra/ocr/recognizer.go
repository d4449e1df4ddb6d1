// Package ocr は pdftoppm と tesseract を使ったページ OCR を提供する
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/textbook-rag/internal/core/ingestion"
)

const (
	// DefaultTimeout は1ページあたりの外部コマンドのタイムアウト
	DefaultTimeout = 60 * time.Second
	// DefaultLanguage は tesseract の言語モデル
	DefaultLanguage = "ara"
	// DefaultDPI はラスタライズの解像度
	DefaultDPI = 300
)

// ErrInvalidPage はページ番号が負の場合のエラー
var ErrInvalidPage = errors.New("page must be >= 0")

// Recognizer は ingestion.PageRecognizer の実装
type Recognizer struct {
	pdftoppmPath  string
	tesseractPath string
	language      string
	dpi           int
	timeout       time.Duration
	logger        *slog.Logger
}

var _ ingestion.PageRecognizer = (*Recognizer)(nil)

// Option は Recognizer のオプション
type Option func(*Recognizer)

// WithBinaries は外部コマンドのパスを指定する
func WithBinaries(pdftoppm, tesseract string) Option {
	return func(r *Recognizer) {
		r.pdftoppmPath = pdftoppm
		r.tesseractPath = tesseract
	}
}

// WithLanguage は tesseract の言語を指定する
func WithLanguage(lang string) Option {
	return func(r *Recognizer) {
		r.language = lang
	}
}

// WithDPI はラスタライズの解像度を指定する
func WithDPI(dpi int) Option {
	return func(r *Recognizer) {
		r.dpi = dpi
	}
}

// WithTimeout は外部コマンドのタイムアウトを指定する
func WithTimeout(timeout time.Duration) Option {
	return func(r *Recognizer) {
		r.timeout = timeout
	}
}

// WithLogger はロガーを指定する
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) {
		r.logger = logger
	}
}

// NewRecognizer は新しい Recognizer を作成する
func NewRecognizer(opts ...Option) *Recognizer {
	r := &Recognizer{
		pdftoppmPath:  "pdftoppm",
		tesseractPath: "tesseract",
		language:      DefaultLanguage,
		dpi:           DefaultDPI,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// RecognizePage は 0 始まりの page をラスタライズして OCR したテキストを返す
func (r *Recognizer) RecognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	if page < 0 {
		return "", ErrInvalidPage
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	workDir, err := os.MkdirTemp("", "textbook-rag-ocr-")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			r.logger.Warn("OCR 作業ディレクトリの削除に失敗", "dir", workDir, "error", err)
		}
	}()

	image, err := r.rasterize(ctx, pdfPath, page+1, workDir)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, r.tesseractPath, image, "stdout", "-l", r.language)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed on page %d: %w", page, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// rasterize は 1 始まりの pageNo を PNG 1枚に変換してそのパスを返す
func (r *Recognizer) rasterize(ctx context.Context, pdfPath string, pageNo int, workDir string) (string, error) {
	prefix := filepath.Join(workDir, "page")
	args := []string{
		"-r", strconv.Itoa(r.dpi),
		"-png",
		"-singlefile",
		"-f", strconv.Itoa(pageNo),
		"-l", strconv.Itoa(pageNo),
		pdfPath,
		prefix,
	}

	cmd := exec.CommandContext(ctx, r.pdftoppmPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	image := prefix + ".png"
	if _, err := os.Stat(image); err != nil {
		return "", fmt.Errorf("no image produced by pdftoppm: %w", err)
	}
	return image, nil
}
