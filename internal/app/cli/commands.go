package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/core/navigation"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func subjectFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "subject",
		Usage:    "教科コードまたは教科 ID",
		Required: true,
	}
}

func ingestFlags() []cli.Flag {
	return []cli.Flag{
		envFlag(),
		&cli.StringFlag{
			Name:  "code",
			Usage: "教科コード（--pdf 省略時はカタログから引く）",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "教科名（アラビア語）",
		},
		&cli.StringFlag{
			Name:  "pdf",
			Usage: "PDF ファイルパス",
		},
		&cli.IntFlag{
			Name:  "version",
			Usage: "希望するコンテンツバージョン（前回以下なら前回+1）",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "カタログの全教科を取り込む",
		},
		&cli.StringFlag{
			Name:  "catalog",
			Usage: "教科カタログ（省略時は SUBJECT_CATALOG）",
		},
	}
}

// Commands はサブコマンド一覧を返す
func Commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "ingest",
			Usage:  "教科 PDF を取り込み、目次・チャンク・課 Embedding を作り直す",
			Flags:  ingestFlags(),
			Action: IngestAction,
		},
		{
			Name:      "ask",
			Usage:     "教科書の内容に基づいて質問に回答する",
			ArgsUsage: "<質問文>",
			Flags: []cli.Flag{
				envFlag(),
				subjectFlag(),
				&cli.StringFlag{
					Name:  "pages",
					Usage: "PDF ページ範囲 (例: 12-18)",
				},
				&cli.StringFlag{
					Name:  "lesson",
					Usage: "課名で検索し、その課のページ範囲に絞る",
				},
				&cli.Int64Flag{
					Name:  "user-id",
					Usage: "質問者の ID",
				},
				&cli.StringFlag{
					Name:  "watermark",
					Usage: "回答末尾に付ける透かし",
				},
				&cli.BoolFlag{
					Name:  "show-citations",
					Usage: "出典一覧を別途表示",
				},
			},
			Action: AskAction,
		},
		{
			Name:  "subject",
			Usage: "教科ナビゲーションコマンド",
			Commands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "教科一覧を表示",
					Flags:  []cli.Flag{envFlag()},
					Action: SubjectListAction,
				},
				{
					Name:   "units",
					Usage:  "単元一覧を表示",
					Flags:  []cli.Flag{envFlag(), subjectFlag()},
					Action: SubjectUnitsAction,
				},
				{
					Name:  "lessons",
					Usage: "単元の課一覧を表示",
					Flags: []cli.Flag{
						envFlag(),
						subjectFlag(),
						&cli.StringFlag{
							Name:     "unit",
							Usage:    "単元 ID",
							Required: true,
						},
					},
					Action: SubjectLessonsAction,
				},
				{
					Name:  "search",
					Usage: "課を検索",
					Flags: []cli.Flag{
						envFlag(),
						subjectFlag(),
						&cli.StringFlag{
							Name:     "query",
							Usage:    "検索語",
							Required: true,
						},
						&cli.IntFlag{
							Name:  "limit",
							Usage: "最大件数",
							Value: navigation.DefaultSearchLimit,
						},
					},
					Action: SubjectSearchAction,
				},
			},
		},
		{
			Name:      "diagnose",
			Usage:     "PDF のテキスト層の品質を診断 (A: スキャン / B: ノイズ / C: 良好)",
			ArgsUsage: "<PDF ファイル>",
			Flags: []cli.Flag{
				&cli.IntSliceFlag{
					Name:  "pages",
					Usage: "標本ページ（1始まり）",
					Value: ingestion.DefaultDiagnosisPages,
				},
			},
			Action: DiagnoseAction,
		},
		{
			Name:   "migrate",
			Usage:  "データベーススキーマを適用",
			Flags:  []cli.Flag{envFlag()},
			Action: MigrateAction,
		},
		{
			Name:  "cache",
			Usage: "回答キャッシュ管理コマンド",
			Commands: []*cli.Command{
				{
					Name:   "purge",
					Usage:  "期限切れのキャッシュエントリを削除",
					Flags:  []cli.Flag{envFlag()},
					Action: CachePurgeAction,
				},
			},
		},
		{
			Name:  "serve",
			Usage: "HTTPサーバを起動",
			Flags: []cli.Flag{
				envFlag(),
				&cli.StringFlag{
					Name:  "addr",
					Usage: "待ち受けアドレス（省略時は HTTP_ADDR）",
				},
				&cli.StringSliceFlag{
					Name:  "allow-origin",
					Usage: "CORS で許可するオリジン（省略時は全て許可）",
				},
			},
			Action: ServeAction,
		},
	}
}
