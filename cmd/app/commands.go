package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oss-impact-radar/internal/adapter/analyzer"
	"oss-impact-radar/internal/adapter/dataset"
	"oss-impact-radar/internal/adapter/feishu"
	"oss-impact-radar/internal/adapter/gemini"
	"oss-impact-radar/internal/adapter/github"
	"oss-impact-radar/internal/adapter/repository"
	"oss-impact-radar/internal/config"
	"oss-impact-radar/internal/port"
	"oss-impact-radar/internal/server"
	"oss-impact-radar/internal/service"

	"github.com/spf13/cobra"
)

// errFetchFailed 抓取失败时已经打印过提示，这里只用来设置退出码
var errFetchFailed = errors.New("fetch failed")

// 整个导出流程的超时时间
const exportTimeout = 5 * time.Minute

// --- 搜索参数 -----------------------------------------------------------------

type searchFlags struct {
	query   string
	sort    string
	order   string
	perPage int
}

func addSearchFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "GitHub 搜索语句，例如 \"stars:>=500\"")
	cmd.Flags().StringVar(&f.sort, "sort", "", "排序字段: stars / forks / updated")
	cmd.Flags().StringVar(&f.order, "order", "", "排序方向: desc / asc")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "每页数量 (1-100)")
}

// apply 只覆盖命令行里显式给出的参数
func (f *searchFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("query") {
		cfg.GitHub.Query = f.query
	}
	if cmd.Flags().Changed("sort") {
		cfg.GitHub.Sort = f.sort
	}
	if cmd.Flags().Changed("order") {
		cfg.GitHub.Order = f.order
	}
	if cmd.Flags().Changed("per-page") {
		cfg.GitHub.PerPage = f.perPage
	}
	return cfg.Validate()
}

func searchQuery(cfg *config.Config) port.SearchQuery {
	return port.SearchQuery{
		Query:   cfg.GitHub.Query,
		Sort:    cfg.GitHub.Sort,
		Order:   cfg.GitHub.Order,
		PerPage: cfg.GitHub.PerPage,
	}
}

func newFetcher(cfg *config.Config) (*github.Fetcher, error) {
	opts := []github.Option{github.WithMaxRetries(cfg.GitHub.MaxRetries)}
	if cfg.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	return github.NewFetcher(cfg.GitHub.Token, opts...)
}

// --- fetch --------------------------------------------------------------------

func newFetchCmd() *cobra.Command {
	var sf searchFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "搜索 GitHub 并打印一页结果",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := sf.apply(cmd, cfg); err != nil {
				return err
			}

			fetcher, err := newFetcher(cfg)
			if err != nil {
				return err
			}

			result, err := fetcher.Search(cmd.Context(), searchQuery(cfg))
			if err != nil {
				log.Printf("❌ %v", err)
				fmt.Fprintln(cmd.OutOrStdout(), github.FailureMessage)
				return errFetchFailed
			}
			github.PrintResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	addSearchFlags(cmd, &sf)
	return cmd
}

// --- export -------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	var (
		sf    searchFlags
		out   string
		useDB bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "抓取一页结果，补全指标和分类后写成 CSV 数据集",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := sf.apply(cmd, cfg); err != nil {
				return err
			}
			if out == "" {
				out = cfg.Dashboard.DatasetPath
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
			defer cancel()

			fetcher, err := newFetcher(cfg)
			if err != nil {
				return err
			}

			var categorizer port.Categorizer
			if cfg.Gemini.APIKey != "" {
				c, err := gemini.NewCategorizer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
				if err != nil {
					return err
				}
				defer c.Close()
				categorizer = c
			} else {
				log.Println("⚠️ 未配置 GEMINI_API_KEY，所有项目的分类将标记为 Unknown")
			}

			var repoStore port.Repository
			if useDB {
				if cfg.Database.DSN == "" {
					return fmt.Errorf("--db 需要设置 %s", config.EnvDatabaseDSN)
				}
				store, err := repository.NewPostgresRepo(cfg.Database.DSN)
				if err != nil {
					return err
				}
				repoStore = store
			}

			svc := service.NewExportService(
				fetcher,
				analyzer.NewRepoAnalyzer(categorizer),
				dataset.NewCSVStore(),
				repoStore,
				cfg.Gemini.Concurrency,
			)
			repos, err := svc.Run(ctx, searchQuery(cfg), out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🎉 导出完成，共 %d 个项目 -> %s\n", len(repos), out)
			return nil
		},
	}
	addSearchFlags(cmd, &sf)
	cmd.Flags().StringVar(&out, "out", "", "输出 CSV 路径，默认使用 dashboard.dataset_path")
	cmd.Flags().BoolVar(&useDB, "db", false, "同时写入 Postgres (需要 DATABASE_DSN)")
	return cmd
}

// --- rank / notify ------------------------------------------------------------

type rankFlags struct {
	dataset  string
	category string
	preset   string
	stars    float64
	forks    float64
	age      float64
	top      int
	maxAge   int
}

func addRankFlags(cmd *cobra.Command, f *rankFlags) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "数据集 CSV 路径，默认使用 dashboard.dataset_path")
	cmd.Flags().StringVar(&f.category, "category", "All", "分类选项")
	cmd.Flags().StringVar(&f.preset, "preset", "Balanced", "权重预设: Balanced / Popularity Focused / Contribution Focused")
	cmd.Flags().Float64Var(&f.stars, "stars", 0, "star 权重 (0-1，步长 0.1)，覆盖预设")
	cmd.Flags().Float64Var(&f.forks, "forks", 0, "fork 权重 (0-1，步长 0.1)，覆盖预设")
	cmd.Flags().Float64Var(&f.age, "age", 0, "项目年龄权重 (0-1，步长 0.1)，覆盖预设")
	cmd.Flags().IntVar(&f.top, "top", 0, "展示行数 (1-30)，默认使用 dashboard.top_n")
	cmd.Flags().IntVar(&f.maxAge, "max-age", 0, "只看创建时间在 N 天以内的项目，0 表示不限")
}

func (f *rankFlags) request(cmd *cobra.Command, cfg *config.Config) service.RankRequest {
	req := service.RankRequest{
		Category:   f.category,
		Preset:     f.preset,
		Top:        f.top,
		MaxAgeDays: f.maxAge,
	}
	if req.Top == 0 {
		req.Top = cfg.Dashboard.TopN
	}
	if cmd.Flags().Changed("stars") {
		req.Stars = &f.stars
	}
	if cmd.Flags().Changed("forks") {
		req.Forks = &f.forks
	}
	if cmd.Flags().Changed("age") {
		req.Age = &f.age
	}
	return req
}

// loadDashboard 读取数据集并放进仪表盘服务
func (f *rankFlags) loadDashboard(cfg *config.Config, notifier port.Notifier) (*service.DashboardService, error) {
	path := f.dataset
	if path == "" {
		path = cfg.Dashboard.DatasetPath
	}
	repos, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	svc := service.NewDashboardService(notifier, nil)
	svc.Replace(repos)
	return svc, nil
}

func newRankCmd() *cobra.Command {
	var rf rankFlags
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "加载数据集并打印加权排名",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := rf.loadDashboard(cfg, nil)
			if err != nil {
				return err
			}

			resp, err := svc.Rank(rf.request(cmd, cfg))
			if err != nil {
				return err
			}
			return printRanking(cmd.OutOrStdout(), resp)
		},
	}
	addRankFlags(cmd, &rf)
	return cmd
}

func newNotifyCmd() *cobra.Command {
	var rf rankFlags
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "计算排名并推送到飞书",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Feishu.Webhook == "" {
				return fmt.Errorf("请设置 %s", config.EnvFeishuWebhook)
			}

			svc, err := rf.loadDashboard(cfg, feishu.NewNotifier(cfg.Feishu.Webhook))
			if err != nil {
				return err
			}

			resp, err := svc.Notify(cmd.Context(), rf.request(cmd, cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📲 已推送 %s / %s 的前 %d 个项目\n", resp.Category, resp.Preset, len(resp.Rows))
			return nil
		},
	}
	addRankFlags(cmd, &rf)
	return cmd
}

// --- serve --------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var (
		addr        string
		datasetPath string
		fromDB      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动仪表盘 HTTP 服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Dashboard.HTTPAddr = addr
			}
			if datasetPath != "" {
				cfg.Dashboard.DatasetPath = datasetPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var notifier port.Notifier
			if cfg.Feishu.Webhook != "" {
				notifier = feishu.NewNotifier(cfg.Feishu.Webhook)
			}

			var repoStore port.Repository
			if fromDB {
				if cfg.Database.DSN == "" {
					return fmt.Errorf("--from-db 需要设置 %s", config.EnvDatabaseDSN)
				}
				store, err := repository.NewPostgresRepo(cfg.Database.DSN)
				if err != nil {
					return err
				}
				repoStore = store
			}

			svc := service.NewDashboardService(notifier, repoStore)
			if fromDB {
				if err := svc.LoadFromStore(ctx); err != nil {
					return err
				}
			} else {
				repos, err := dataset.Load(cfg.Dashboard.DatasetPath)
				if err != nil {
					return err
				}
				svc.Replace(repos)

				if cfg.Dashboard.Watch {
					go func() {
						if err := dataset.Watch(ctx, cfg.Dashboard.DatasetPath, svc.Replace); err != nil {
							log.Printf("[Dataset] ⚠️ 无法监听数据集: %v", err)
						}
					}()
				}
			}

			return runServer(ctx, cfg.Dashboard.HTTPAddr, server.New(svc, cfg.Dashboard.TopN))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，默认使用 dashboard.http_addr")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "数据集 CSV 路径，默认使用 dashboard.dataset_path")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "从 Postgres 加载数据集 (需要 DATABASE_DSN)")
	return cmd
}

// runServer 阻塞直到 ctx 结束，然后优雅关闭
func runServer(ctx context.Context, addr string, srv *server.Server) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 仪表盘已启动: http://localhost%s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Println("\n👋 收到停止信号，正在退出...")
	srv.Hub().Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
