package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/platform/config"
)

// IngestAction は教科 PDF を取り込むコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	targets, err := ingestTargets(cmd, appCtx.Config)
	if err != nil {
		return err
	}

	var failed []string
	for _, params := range targets {
		result, err := appCtx.Container.IngestService.IngestSubject(ctx, params)
		if err != nil {
			slog.Error("取り込みに失敗しました", "subject", params.Code, "error", err)
			failed = append(failed, params.Code)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		printIngestResult(result)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d 件の教科の取り込みに失敗しました: %v", len(failed), failed)
	}
	return nil
}

// ingestTargets はフラグから取り込み対象を決める。
// --all はカタログの全教科、--pdf 指定時はフラグの値、それ以外は --code をカタログから引く。
func ingestTargets(cmd *cli.Command, cfg *config.Config) ([]ingestion.IngestParams, error) {
	code := cmd.String("code")
	pdfPath := cmd.String("pdf")
	version := cmd.Int("version")

	catalogPath := cmd.String("catalog")
	if catalogPath == "" {
		catalogPath = cfg.SubjectCatalog
	}

	switch {
	case cmd.Bool("all"):
		catalog, err := config.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		targets := make([]ingestion.IngestParams, 0, len(catalog.Subjects))
		for _, s := range catalog.Subjects {
			targets = append(targets, paramsFromCatalog(s, version))
		}
		return targets, nil
	case code == "":
		return nil, errors.New("--code または --all を指定してください")
	case pdfPath != "":
		return []ingestion.IngestParams{{
			Code:           code,
			Name:           cmd.String("name"),
			PDFPath:        pdfPath,
			ContentVersion: version,
		}}, nil
	default:
		catalog, err := config.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		entry, err := catalog.Find(code)
		if err != nil {
			return nil, err
		}
		params := paramsFromCatalog(entry, version)
		if name := cmd.String("name"); name != "" {
			params.Name = name
		}
		return []ingestion.IngestParams{params}, nil
	}
}

func paramsFromCatalog(entry config.CatalogEntry, version int) ingestion.IngestParams {
	if version <= 0 {
		version = entry.Version
	}
	return ingestion.IngestParams{
		Code:           entry.Code,
		Name:           entry.Name,
		PDFPath:        entry.PDF,
		ContentVersion: version,
	}
}

func printIngestResult(r *ingestion.IngestResult) {
	fmt.Printf("%s (%s)\n", r.Subject.Code, r.Subject.Name)
	fmt.Printf("  id:              %s\n", r.Subject.ID)
	fmt.Printf("  content version: %d\n", r.Subject.ContentVersion)
	fmt.Printf("  pages:           %d\n", r.PageCount)
	fmt.Printf("  toc:             %d items (%s)\n", r.TocItemCount, r.TocMethod)
	fmt.Printf("  chunks:          %d\n", r.ChunkCount)
	fmt.Printf("  lessons:         %d embedded\n", r.LessonEmbeddingCount)
	fmt.Printf("  duration:        %s\n", r.Duration)
}
