package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/infra/pdf"
)

// DiagnoseAction は PDF のテキスト層の品質を診断するコマンドのアクション。
// DB やキャッシュには接続しない。
func DiagnoseAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("PDF ファイルを指定してください")
	}

	diag, err := ingestion.DiagnosePDF(pdf.Opener, path, cmd.IntSlice("pages"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(diag)
}
