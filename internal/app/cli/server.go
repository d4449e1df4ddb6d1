package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	httpapi "github.com/jinford/textbook-rag/internal/interface/http"
	httpH "github.com/jinford/textbook-rag/internal/interface/http/handlers"
)

// ServeAction はHTTPサーバを起動するコマンドのアクション
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	addr := cmd.String("addr")
	if addr == "" {
		addr = appCtx.Config.HTTPAddr
	}

	logger := appCtx.Logger()
	server := httpapi.NewServer(httpapi.RouterConfig{
		AnswerHandler:  httpH.NewAnswerHandler(appCtx.Container.AnswerService, logger),
		SubjectHandler: httpH.NewSubjectHandler(appCtx.Container.NavigationService, logger),
		HealthHandler:  httpH.NewHealthHandler(),
		AllowOrigins:   cmd.StringSlice("allow-origin"),
		Logger:         logger,
	})

	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("HTTPサーバの実行に失敗: %w", err)
	}
	slog.Info("HTTPサーバを停止しました")
	return nil
}

// MigrateAction はデータベーススキーマを適用するコマンドのアクション
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Migrate(ctx); err != nil {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	slog.Info("マイグレーションが完了しました", "store", appCtx.Config.StoreBackend)
	return nil
}

// expiredPurger は期限切れエントリを削除できるキャッシュ
type expiredPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// CachePurgeAction は期限切れのキャッシュエントリを削除するコマンドのアクション
func CachePurgeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	purger, ok := appCtx.Container.Cache.(expiredPurger)
	if !ok {
		slog.Info("このキャッシュは期限切れエントリを自動で破棄します", "cache", appCtx.Config.CacheBackend)
		return nil
	}
	n, err := purger.Purge(ctx)
	if err != nil {
		return fmt.Errorf("キャッシュの削除に失敗: %w", err)
	}
	fmt.Printf("%d 件の期限切れエントリを削除しました\n", n)
	return nil
}
