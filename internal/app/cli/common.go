package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/platform/config"
	"github.com/jinford/textbook-rag/internal/platform/container"
	"github.com/jinford/textbook-rag/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
}

// NewAppContext は設定ファイルを読み込み、コンテナを組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string, opts ...container.ContainerOption) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	return newAppContextFromConfig(ctx, cfg, opts...)
}

func newAppContextFromConfig(ctx context.Context, cfg *config.Config, opts ...container.ContainerOption) (*AppContext, error) {
	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	cont, err := container.NewContainer(ctx, cfg, append([]container.ContainerOption{container.WithContainerLogger(appLogger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// loadAppContext は共通フラグ（--env）から AppContext を作成する
func loadAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	return NewAppContext(ctx, cmd.String("env"))
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}

// ResolveSubject は教科 ID（UUID）または教科コードから教科を引く
func (ac *AppContext) ResolveSubject(ctx context.Context, ref string) (*curriculum.Subject, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("教科を指定してください")
	}

	store := ac.Container.Store
	var (
		found mo.Option[*curriculum.Subject]
		err   error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		found, err = store.GetSubject(ctx, id)
	} else {
		found, err = store.GetSubjectByCode(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("教科の取得に失敗: %w", err)
	}
	subject, ok := found.Get()
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, curriculum.ErrSubjectNotFound)
	}
	return subject, nil
}

// ParsePageRange は "start-end"（PDF ページインデックス、両端含む）を解釈する。空文字は範囲なし。
func ParsePageRange(s string) (mo.Option[curriculum.PageRange], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return mo.None[curriculum.PageRange](), nil
	}
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		endStr = startStr
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return mo.None[curriculum.PageRange](), fmt.Errorf("ページ範囲が不正です: %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return mo.None[curriculum.PageRange](), fmt.Errorf("ページ範囲が不正です: %q", s)
	}
	if start < 0 || end < start {
		return mo.None[curriculum.PageRange](), fmt.Errorf("ページ範囲が不正です: %q", s)
	}
	return mo.Some(curriculum.PageRange{Start: start, End: end}), nil
}
