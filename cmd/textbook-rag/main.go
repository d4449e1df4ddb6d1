package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/textbook-rag/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 設定読み込み前のログ出力用
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:     "textbook-rag",
		Usage:    "教科書 PDF に基づく出典付き質問応答システム",
		Commands: appcli.Commands(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
