package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/textbook-rag/internal/core/answer"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	subjectRef := cmd.String("subject")
	showCitations := cmd.Bool("show-citations")

	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}
	pageRange, err := ParsePageRange(cmd.String("pages"))
	if err != nil {
		return err
	}

	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject, err := appCtx.ResolveSubject(ctx, subjectRef)
	if err != nil {
		return err
	}

	// --lesson は課名検索の先頭候補のページ範囲を使う
	if lessonQuery := cmd.String("lesson"); lessonQuery != "" && pageRange.IsAbsent() {
		lessons, err := appCtx.Container.NavigationService.SearchLessons(ctx, subject.ID, lessonQuery, 1)
		if err != nil {
			return err
		}
		if len(lessons) > 0 {
			pageRange = lessons[0].PageRange()
			slog.Info("課のページ範囲を使用します", "lesson", lessons[0].Title, "range", pageRange.OrEmpty())
		}
	}

	slog.Info("質問応答を開始",
		"subject", subject.Code,
		"question", question,
	)

	result, err := appCtx.Container.AnswerService.AnswerQuestion(ctx, answer.Request{
		UserID:    cmd.Int64("user-id"),
		SubjectID: subject.ID,
		Question:  question,
		PageRange: pageRange,
		Watermark: cmd.String("watermark"),
	})
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	fmt.Println(result.Answer)

	if showCitations && len(result.Citations) > 0 {
		fmt.Println("\n--- 出典 ---")
		for i, c := range result.Citations {
			fmt.Printf("[%d] %s\n", i+1, c)
		}
	}

	slog.Info("質問応答が完了しました", "cached", result.Cached, "citations", len(result.Citations))
	return nil
}
