package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/document"
	"github.com/jinford/textbook-rag/internal/core/ingestion/chunk"
	"github.com/jinford/textbook-rag/internal/core/ingestion/toc"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
	"golang.org/x/sync/errgroup"
)

// IngestResult は取り込み処理の結果
type IngestResult struct {
	Subject              *curriculum.Subject
	TocMethod            toc.Method
	TocItemCount         int
	ChunkCount           int
	LessonEmbeddingCount int
	PageCount            int
	Duration             time.Duration
}

// IngestService は教科 PDF の取り込みユースケースを提供する
type IngestService struct {
	repository     Repository
	opener         DocumentOpener
	embedder       Embedder
	extractor      *toc.Extractor
	pageText       *PageTextExtractor
	tokenCounter   chunk.TokenCounter
	chunkConfig    chunk.Config
	pipelineConfig *PipelineConfig
	ocrSourceDir   string
	tocDebugDir    string
	logger         *slog.Logger
}

type ingestServiceOptions struct {
	extractor      *toc.Extractor
	ocr            PageRecognizer
	tokenCounter   chunk.TokenCounter
	chunkConfig    *chunk.Config
	pipelineConfig *PipelineConfig
	ocrSourceDir   string
	tocDebugDir    string
	logger         *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger はロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithTocExtractor は目次抽出器を差し替える
func WithTocExtractor(extractor *toc.Extractor) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.extractor = extractor
	}
}

// WithPageRecognizer はテキスト層がほぼ空のページに使う OCR を設定する
func WithPageRecognizer(ocr PageRecognizer) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.ocr = ocr
	}
}

// WithTokenCounter はチャンクのトークン数計測器を設定する
func WithTokenCounter(counter chunk.TokenCounter) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.tokenCounter = counter
	}
}

// WithChunkConfig はチャンク設定を上書きする
func WithChunkConfig(cfg chunk.Config) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.chunkConfig = &cfg
	}
}

// WithPipelineConfig はパイプライン設定を上書きする
func WithPipelineConfig(cfg *PipelineConfig) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.pipelineConfig = cfg
	}
}

// WithOCRSourceDir は OCR 済み PDF の置き場所を設定する。
// 同名ファイルが存在すれば元 PDF の代わりに読み込む。
func WithOCRSourceDir(dir string) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.ocrSourceDir = dir
	}
}

// WithTocDebugDir は目次抽出結果の JSON 出力先を設定する（空なら出力しない）
func WithTocDebugDir(dir string) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.tocDebugDir = dir
	}
}

// NewIngestService は新しい IngestService を作成する
func NewIngestService(repo Repository, opener DocumentOpener, embedder Embedder, opts ...IngestServiceOption) *IngestService {
	options := ingestServiceOptions{
		pipelineConfig: DefaultPipelineConfig(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.extractor == nil {
		options.extractor = toc.NewExtractor(toc.WithExtractorLogger(options.logger))
	}
	if options.chunkConfig == nil {
		cfg := chunk.DefaultConfig()
		options.chunkConfig = &cfg
	}
	if options.pipelineConfig == nil || options.pipelineConfig.EmbeddingWorkerCount <= 0 {
		options.pipelineConfig = DefaultPipelineConfig()
	}

	return &IngestService{
		repository:     repo,
		opener:         opener,
		embedder:       embedder,
		extractor:      options.extractor,
		pageText:       NewPageTextExtractor(options.ocr, options.logger),
		tokenCounter:   options.tokenCounter,
		chunkConfig:    *options.chunkConfig,
		pipelineConfig: options.pipelineConfig,
		ocrSourceDir:   options.ocrSourceDir,
		tocDebugDir:    options.tocDebugDir,
		logger:         options.logger,
	}
}

// IngestSubject は教科 PDF を取り込み、目次・チャンク・課 Embedding を丸ごと入れ替える。
// 抽出と Embedding 生成をすべて終えてから1トランザクションで書き込むため、
// 途中で失敗しても既存の内容は残る。コンテンツバージョンは必ず前回より大きくなる。
func (s *IngestService) IngestSubject(ctx context.Context, params IngestParams) (*IngestResult, error) {
	startTime := time.Now()

	code := strings.TrimSpace(params.Code)
	if code == "" {
		return nil, ErrEmptySubjectCode
	}
	if strings.TrimSpace(params.PDFPath) == "" {
		return nil, ErrEmptyPDFPath
	}

	sourcePath := s.resolveSourcePath(params.PDFPath)
	s.logger.Info("教科の取り込みを開始",
		"subject", code,
		"pdf", sourcePath,
	)

	doc, err := s.opener.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("PDFのオープンに失敗: %w", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			s.logger.Warn("failed to close pdf", "error", cerr)
		}
	}()

	existing, err := s.repository.GetSubjectByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("教科の取得に失敗: %w", err)
	}
	subject := s.nextSubject(existing.OrElse(nil), code, params)

	tocResult, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("目次の抽出に失敗: %w", err)
	}
	if len(tocResult.Items) == 0 {
		tocResult.UseSynthetic(doc.PageCount())
		s.logger.Info("目次が見つからないため合成目次を使用", "subject", code, "items", len(tocResult.Items))
	}
	s.writeTocDebug(code, tocResult)

	tocItems := BuildForest(subject.ID, tocResult.Items, tocResult.PageMapping)

	chunks, err := s.chunkPages(ctx, doc, subject.ID, tocItems, tocResult.PageMapping)
	if err != nil {
		return nil, err
	}

	embeddings, err := s.embedLessons(ctx, subject.ID, tocItems, chunks)
	if err != nil {
		return nil, err
	}

	saved, err := s.repository.ReplaceSubjectContent(ctx, &SubjectContent{
		Subject:          subject,
		TocItems:         tocItems,
		Chunks:           chunks,
		LessonEmbeddings: embeddings,
	})
	if err != nil {
		return nil, fmt.Errorf("取り込み結果の保存に失敗: %w", err)
	}

	result := &IngestResult{
		Subject:              saved,
		TocMethod:            tocResult.Method,
		TocItemCount:         len(tocItems),
		ChunkCount:           len(chunks),
		LessonEmbeddingCount: len(embeddings),
		PageCount:            doc.PageCount(),
		Duration:             time.Since(startTime),
	}

	s.logger.Info("教科の取り込みが完了",
		"subject", code,
		"contentVersion", saved.ContentVersion,
		"tocMethod", result.TocMethod,
		"tocItems", result.TocItemCount,
		"chunks", result.ChunkCount,
		"lessonEmbeddings", result.LessonEmbeddingCount,
		"pages", result.PageCount,
		"duration", result.Duration,
	)

	return result, nil
}

func (s *IngestService) resolveSourcePath(pdfPath string) string {
	if s.ocrSourceDir == "" {
		return pdfPath
	}
	candidate := filepath.Join(s.ocrSourceDir, filepath.Base(pdfPath))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return pdfPath
}

func (s *IngestService) nextSubject(existing *curriculum.Subject, code string, params IngestParams) *curriculum.Subject {
	version := max(params.ContentVersion, 1)
	subject := &curriculum.Subject{
		ID:      uuid.New(),
		Code:    code,
		Name:    params.Name,
		PDFPath: params.PDFPath,
	}
	if existing != nil {
		subject.ID = existing.ID
		subject.CreatedAt = existing.CreatedAt
		if subject.Name == "" {
			subject.Name = existing.Name
		}
		version = max(version, existing.ContentVersion+1)
	}
	subject.ContentVersion = version
	return subject
}

func (s *IngestService) writeTocDebug(code string, result *toc.Result) {
	if s.tocDebugDir == "" {
		return
	}
	path, err := toc.WriteDebugFile(s.tocDebugDir, code, result)
	if err != nil {
		s.logger.Warn("failed to write toc debug file", "subject", code, "error", err)
		return
	}
	s.logger.Debug("toc debug file written", "path", path)
}

// chunkPages は全ページを抽出・正規化・分割し、各チャンクを課に割り当てる
func (s *IngestService) chunkPages(ctx context.Context, doc document.Document, subjectID uuid.UUID, tocItems []*curriculum.TocItem, mapping toc.PageMapping) ([]*curriculum.Chunk, error) {
	pageCount := doc.PageCount()
	locator := newLessonLocator(tocItems, pageCount)
	printed := mapping.Reverse()

	var chunks []*curriculum.Chunk
	for page := 0; page < pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("取り込みが中断されました: %w", err)
		}

		normalized := textnorm.NormalizeArabic(s.pageText.Extract(ctx, doc, page))
		pieces := s.chunkConfig.Chunk(normalized)
		if len(pieces) == 0 {
			continue
		}

		var lessonID *uuid.UUID
		if ls := locator.Locate(page); ls != nil {
			id := ls.ID
			lessonID = &id
		}
		var printedPage *int
		if p, ok := printed[page]; ok {
			printedPage = curriculum.IntPtr(p)
		}

		for _, piece := range pieces {
			c := &curriculum.Chunk{
				ID:                uuid.New(),
				SubjectID:         subjectID,
				TocItemID:         lessonID,
				PDFPageIndex:      page,
				PrintedPageNumber: printedPage,
				Ordinal:           len(chunks),
				Content:           piece,
				ContentHash:       chunk.HashContent(piece),
			}
			if s.tokenCounter != nil {
				c.TokenCount = s.tokenCounter.CountTokens(piece)
			}
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

// embedLessons はチャンクを持つ課ごとに要約を作り、Embedding を並行生成する
func (s *IngestService) embedLessons(ctx context.Context, subjectID uuid.UUID, tocItems []*curriculum.TocItem, chunks []*curriculum.Chunk) ([]*curriculum.LessonEmbedding, error) {
	byLesson := map[uuid.UUID][]string{}
	for _, c := range chunks {
		if c.TocItemID != nil {
			byLesson[*c.TocItemID] = append(byLesson[*c.TocItemID], c.Content)
		}
	}

	var embeddings []*curriculum.LessonEmbedding
	for _, it := range tocItems {
		contents, ok := byLesson[it.ID]
		if !ok {
			continue
		}
		embeddings = append(embeddings, &curriculum.LessonEmbedding{
			TocItemID: it.ID,
			SubjectID: subjectID,
			Summary:   BuildLessonSummary(contents),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pipelineConfig.EmbeddingWorkerCount)
	for _, e := range embeddings {
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, e.Summary)
			if err != nil {
				return fmt.Errorf("課要約の Embedding 生成に失敗 (tocItem=%s): %w", e.TocItemID, err)
			}
			e.Vector = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}
