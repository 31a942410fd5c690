package main

import (
	"fmt"
	"log"
	"os"

	"oss-impact-radar/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ 未找到 .env，使用系统环境变量")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "radar",
		Short:         "LLM 开源项目影响力雷达",
		Long:          "抓取 GitHub 上的 LLM 开源项目，并按 star、fork、项目年龄的加权分排名。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML 配置文件路径，为空时只用默认值和环境变量")

	root.AddCommand(
		newFetchCmd(),
		newExportCmd(),
		newRankCmd(),
		newServeCmd(),
		newNotifyCmd(),
	)
	return root
}

// loadConfig 读取 --config 指定的配置
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
