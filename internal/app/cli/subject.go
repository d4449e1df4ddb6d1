package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/textbook-rag/internal/core/navigation"
)

// SubjectListAction は教科一覧を表示するコマンドのアクション
func SubjectListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subjects, err := appCtx.Container.NavigationService.ListSubjects(ctx)
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		fmt.Println("教科が登録されていません")
		return nil
	}
	for _, s := range subjects {
		fmt.Printf("%s\t%s\t%s\tv%d\n", s.ID, s.Code, s.Name, s.ContentVersion)
	}
	return nil
}

// SubjectUnitsAction は教科の単元一覧を表示するコマンドのアクション
func SubjectUnitsAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject, err := appCtx.ResolveSubject(ctx, cmd.String("subject"))
	if err != nil {
		return err
	}
	units, err := appCtx.Container.NavigationService.ListUnits(ctx, subject.ID)
	if err != nil {
		return err
	}
	for _, u := range units {
		fmt.Printf("%s\t%s\t%s\n", u.ID, u.Title, formatPage(u.StartPDFPage))
	}
	return nil
}

// SubjectLessonsAction は単元の課一覧を表示するコマンドのアクション
func SubjectLessonsAction(ctx context.Context, cmd *cli.Command) error {
	unitID, err := uuid.Parse(cmd.String("unit"))
	if err != nil {
		return fmt.Errorf("単元 ID が不正です: %w", err)
	}

	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject, err := appCtx.ResolveSubject(ctx, cmd.String("subject"))
	if err != nil {
		return err
	}
	lessons, err := appCtx.Container.NavigationService.ListLessons(ctx, subject.ID, unitID)
	if err != nil {
		return err
	}
	printLessons(lessons)
	return nil
}

// SubjectSearchAction は課を検索するコマンドのアクション
func SubjectSearchAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := loadAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject, err := appCtx.ResolveSubject(ctx, cmd.String("subject"))
	if err != nil {
		return err
	}
	lessons, err := appCtx.Container.NavigationService.SearchLessons(ctx, subject.ID, cmd.String("query"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	printLessons(lessons)
	return nil
}

func printLessons(lessons []*navigation.LessonView) {
	if len(lessons) == 0 {
		fmt.Println("課が見つかりません")
		return
	}
	for _, l := range lessons {
		pages := "all"
		if r, ok := l.PageRange().Get(); ok {
			pages = r.Key()
		}
		fmt.Printf("%s\t%s\tpages=%s", l.ID, l.Title, pages)
		if l.Score > 0 {
			fmt.Printf("\tscore=%.1f", l.Score)
		}
		fmt.Println()
	}
}

func formatPage(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("p.%d", *p)
}
