package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/document"
	"github.com/jinford/textbook-rag/internal/core/document/doctest"
	"github.com/jinford/textbook-rag/internal/core/ingestion/chunk"
	"github.com/jinford/textbook-rag/internal/core/ingestion/toc"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRepository は ReplaceSubjectContent の内容を保持するテスト用リポジトリ
type stubRepository struct {
	subjects   map[string]*curriculum.Subject
	lastSaved  *SubjectContent
	replaceErr error
}

func newStubRepository() *stubRepository {
	return &stubRepository{subjects: map[string]*curriculum.Subject{}}
}

func (r *stubRepository) GetSubjectByCode(ctx context.Context, code string) (mo.Option[*curriculum.Subject], error) {
	if s, ok := r.subjects[code]; ok {
		copied := *s
		return mo.Some(&copied), nil
	}
	return mo.None[*curriculum.Subject](), nil
}

func (r *stubRepository) ReplaceSubjectContent(ctx context.Context, content *SubjectContent) (*curriculum.Subject, error) {
	if r.replaceErr != nil {
		return nil, r.replaceErr
	}
	saved := *content.Subject
	r.subjects[saved.Code] = &saved
	r.lastSaved = content
	return &saved, nil
}

// stubEmbedder は呼び出されたテキストを記録する
type stubEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return []float32{1, 0, 0}, nil
}

type stubRecognizer struct {
	text  string
	pages []int
}

func (r *stubRecognizer) RecognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	r.pages = append(r.pages, page)
	return r.text, nil
}

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(text) }

func (wordCounter) TrimToTokenLimit(text string, maxTokens int) string { return text }

func staticToc(items ...toc.Item) *toc.Extractor {
	return toc.NewExtractor(
		toc.WithExtractorLogger(discardLogger()),
		toc.WithStrategies(toc.Strategy{
			Method: toc.MethodOutline,
			Extract: func(ctx context.Context, doc document.Document) ([]toc.Item, error) {
				return items, nil
			},
		}),
	)
}

func physicsDoc() *doctest.Fake {
	return doctest.New(
		"مقدمة الكتاب",
		"الحركة في خط مستقيم تعني تغير موضع الجسم مع الزمن بسرعة ثابتة 10",
		"السرعة المتجهة هي معدل تغير الإزاحة بالنسبة للزمن 11",
		"قوانين نيوتن تصف العلاقة بين القوة والحركة والكتلة 12",
	)
}

func physicsToc() *toc.Extractor {
	return staticToc(
		toc.Item{Title: "الوحدة الأولى", Level: 1, Page: page(1)},
		toc.Item{Title: "الحركة", Level: 2, Page: page(1)},
		toc.Item{Title: "قوانين نيوتن", Level: 2, PrintedPage: page(12)},
	)
}

func newTestService(repo Repository, doc *doctest.Fake, embedder Embedder, opts ...IngestServiceOption) *IngestService {
	opener := DocumentOpenerFunc(func(path string) (document.Document, error) {
		doc.Closed = false
		return doc, nil
	})
	base := []IngestServiceOption{
		WithIngestLogger(discardLogger()),
		WithChunkConfig(chunk.Config{MinWords: 2, MaxWords: 6, OverlapWords: 1}),
	}
	return NewIngestService(repo, opener, embedder, append(base, opts...)...)
}

func TestIngestService_IngestSubject(t *testing.T) {
	repo := newStubRepository()
	embedder := &stubEmbedder{}
	doc := physicsDoc()
	svc := newTestService(repo, doc, embedder,
		WithTocExtractor(physicsToc()),
		WithTokenCounter(wordCounter{}),
	)

	result, err := svc.IngestSubject(context.Background(), IngestParams{
		Code:           "physics",
		Name:           "فيزياء",
		PDFPath:        "data/pdfs/physics.pdf",
		ContentVersion: 1,
	})
	require.NoError(t, err)
	assert.True(t, doc.Closed)

	assert.Equal(t, toc.MethodOutline, result.TocMethod)
	assert.Equal(t, 3, result.TocItemCount)
	assert.Equal(t, 1, result.Subject.ContentVersion)
	assert.Equal(t, "فيزياء", result.Subject.Name)
	assert.Equal(t, 4, result.PageCount)

	saved := repo.lastSaved
	require.NotNil(t, saved)
	require.Len(t, saved.TocItems, 3)
	unit, motion, newton := saved.TocItems[0], saved.TocItems[1], saved.TocItems[2]
	assert.Equal(t, unit.ID, *motion.ParentID)
	assert.Equal(t, unit.ID, *newton.ParentID)
	require.NotNil(t, newton.StartPDFPage)
	assert.Equal(t, 3, *newton.StartPDFPage, "印刷ページ12は対応表で PDF ページ3に解決される")

	require.NotEmpty(t, saved.Chunks)
	assert.Equal(t, result.ChunkCount, len(saved.Chunks))
	for i, c := range saved.Chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, result.Subject.ID, c.SubjectID)
		assert.NotEmpty(t, c.Content)
		assert.Equal(t, chunk.HashContent(c.Content), c.ContentHash)
		assert.Equal(t, len(c.Content), c.TokenCount)

		switch c.PDFPageIndex {
		case 0:
			assert.Nil(t, c.TocItemID, "目次より前のページは課に属さない")
			assert.Nil(t, c.PrintedPageNumber)
		case 1, 2:
			require.NotNil(t, c.TocItemID)
			assert.Equal(t, motion.ID, *c.TocItemID)
		case 3:
			require.NotNil(t, c.TocItemID)
			assert.Equal(t, newton.ID, *c.TocItemID)
			require.NotNil(t, c.PrintedPageNumber)
			assert.Equal(t, 12, *c.PrintedPageNumber)
		}
	}

	require.Len(t, saved.LessonEmbeddings, 2, "チャンクを持つ課だけが Embedding を持つ")
	assert.Equal(t, 2, result.LessonEmbeddingCount)
	for _, e := range saved.LessonEmbeddings {
		assert.NotEmpty(t, e.Summary)
		assert.Equal(t, []float32{1, 0, 0}, e.Vector)
	}
	assert.Len(t, embedder.texts, 2)
}

func TestIngestService_VersionAlwaysBumps(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, physicsDoc(), &stubEmbedder{}, WithTocExtractor(physicsToc()))
	ctx := context.Background()
	params := IngestParams{Code: "physics", Name: "فيزياء", PDFPath: "physics.pdf", ContentVersion: 1}

	first, err := svc.IngestSubject(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Subject.ContentVersion)

	second, err := svc.IngestSubject(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Subject.ContentVersion)
	assert.Equal(t, first.Subject.ID, second.Subject.ID, "再取り込みでも教科 ID は維持される")

	params.ContentVersion = 7
	third, err := svc.IngestSubject(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 7, third.Subject.ContentVersion)

	params.Name = ""
	fourth, err := svc.IngestSubject(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 8, fourth.Subject.ContentVersion)
	assert.Equal(t, "فيزياء", fourth.Subject.Name)
}

func TestIngestService_SyntheticTocWhenNoSignal(t *testing.T) {
	repo := newStubRepository()
	texts := make([]string, 30)
	for i := range texts {
		texts[i] = "نص الصفحة عن الطاقة الحركية"
	}
	doc := doctest.New(texts...)
	svc := newTestService(repo, doc, &stubEmbedder{}, WithTocExtractor(staticToc()))

	result, err := svc.IngestSubject(context.Background(), IngestParams{Code: "science", PDFPath: "science.pdf"})
	require.NoError(t, err)

	assert.Equal(t, toc.MethodSyntheticGrid, result.TocMethod)
	// 30ページ: 課は 0, 12, 24 ページ開始の3つ、単元は1つ
	assert.Equal(t, 4, result.TocItemCount)
	assert.Equal(t, 3, result.LessonEmbeddingCount)
	for _, c := range repo.lastSaved.Chunks {
		assert.NotNil(t, c.TocItemID)
	}
}

func TestIngestService_BadPageDoesNotAbort(t *testing.T) {
	repo := newStubRepository()
	doc := physicsDoc()
	doc.Pages[2].Err = errors.New("broken content stream")
	svc := newTestService(repo, doc, &stubEmbedder{}, WithTocExtractor(physicsToc()))

	result, err := svc.IngestSubject(context.Background(), IngestParams{Code: "physics", PDFPath: "physics.pdf"})
	require.NoError(t, err)
	assert.Positive(t, result.ChunkCount)
	for _, c := range repo.lastSaved.Chunks {
		assert.NotEqual(t, 2, c.PDFPageIndex)
	}
}

func TestIngestService_OCRFallback(t *testing.T) {
	repo := newStubRepository()
	doc := physicsDoc()
	doc.Pages[0].Text = "  "
	ocr := &stubRecognizer{text: "صفحة ممسوحة ضوئيا عن الحركة"}
	svc := newTestService(repo, doc, &stubEmbedder{},
		WithTocExtractor(physicsToc()),
		WithPageRecognizer(ocr),
	)

	_, err := svc.IngestSubject(context.Background(), IngestParams{Code: "physics", PDFPath: "physics.pdf"})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, ocr.pages, "テキスト層が十分なページは OCR しない")
	require.NotEmpty(t, repo.lastSaved.Chunks)
	first := repo.lastSaved.Chunks[0]
	assert.Equal(t, 0, first.PDFPageIndex)
	assert.Contains(t, first.Content, "ممسوحه")
}

func TestIngestService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("教科コード未指定", func(t *testing.T) {
		svc := newTestService(newStubRepository(), physicsDoc(), &stubEmbedder{})
		_, err := svc.IngestSubject(ctx, IngestParams{PDFPath: "x.pdf"})
		assert.ErrorIs(t, err, ErrEmptySubjectCode)
	})

	t.Run("PDFパス未指定", func(t *testing.T) {
		svc := newTestService(newStubRepository(), physicsDoc(), &stubEmbedder{})
		_, err := svc.IngestSubject(ctx, IngestParams{Code: "physics"})
		assert.ErrorIs(t, err, ErrEmptyPDFPath)
	})

	t.Run("PDFが開けない場合は既存内容を残す", func(t *testing.T) {
		repo := newStubRepository()
		openErr := errors.New("no such file")
		svc := NewIngestService(repo, DocumentOpenerFunc(func(string) (document.Document, error) {
			return nil, openErr
		}), &stubEmbedder{}, WithIngestLogger(discardLogger()))

		_, err := svc.IngestSubject(ctx, IngestParams{Code: "physics", PDFPath: "missing.pdf"})
		assert.ErrorIs(t, err, openErr)
		assert.Nil(t, repo.lastSaved)
	})

	t.Run("Embedding 失敗時は保存しない", func(t *testing.T) {
		repo := newStubRepository()
		embedErr := errors.New("rate limited")
		svc := newTestService(repo, physicsDoc(), &stubEmbedder{err: embedErr}, WithTocExtractor(physicsToc()))

		_, err := svc.IngestSubject(ctx, IngestParams{Code: "physics", PDFPath: "physics.pdf"})
		assert.ErrorIs(t, err, embedErr)
		assert.Nil(t, repo.lastSaved)
	})
}

func TestIngestService_PrefersOCRSourceAndWritesTocDebug(t *testing.T) {
	ocrDir := t.TempDir()
	debugDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ocrDir, "physics.pdf"), []byte("%PDF"), 0o644))

	var openedPath string
	doc := physicsDoc()
	svc := NewIngestService(newStubRepository(), DocumentOpenerFunc(func(path string) (document.Document, error) {
		openedPath = path
		return doc, nil
	}), &stubEmbedder{},
		WithIngestLogger(discardLogger()),
		WithTocExtractor(physicsToc()),
		WithOCRSourceDir(ocrDir),
		WithTocDebugDir(debugDir),
	)

	result, err := svc.IngestSubject(context.Background(), IngestParams{Code: "physics", PDFPath: "data/pdfs/physics.pdf"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ocrDir, "physics.pdf"), openedPath)
	assert.Equal(t, "data/pdfs/physics.pdf", result.Subject.PDFPath, "教科には元の PDF パスを記録する")
	assert.FileExists(t, filepath.Join(debugDir, "physics.json"))
}

func TestDiagnosePDF(t *testing.T) {
	texts := make([]string, 6)
	for i := range texts {
		texts[i] = ""
	}
	doc := doctest.New(texts...)
	doc.Pages[0].Blocks = []document.Block{{Text: "كتاب الفيزياء"}, {Text: "الصف الأول"}}

	diag, err := DiagnosePDF(DocumentOpenerFunc(func(string) (document.Document, error) {
		return doc, nil
	}), "physics.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, 6, diag.PageCount)
	require.Len(t, diag.Pages, 2, "範囲外の標本ページ (10, 20) は無視される")
	assert.Equal(t, 1, diag.Pages[0].Page)
	assert.Equal(t, 2, diag.Pages[0].BlocksCount)
	assert.Positive(t, diag.Pages[0].TextLen)
	assert.Equal(t, 5, diag.Pages[1].Page)
	assert.Equal(t, 0, diag.Pages[1].TextLen)
	assert.Equal(t, "A", string(diag.Quality))
}
