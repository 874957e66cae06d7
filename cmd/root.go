package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardbase/config"
	"cardbase/store"
	"cardbase/util/logger"
)

var (
	configPath string
	log        *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "cardbase",
	Short:         "cardbase 卡牌数据库：采集、导入、查询和卡组管理",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return err
		}
		l, err := logger.Init(config.AppConfig.RunMode, config.AppConfig.LogLevel)
		if err != nil {
			return fmt.Errorf("初始化日志失败: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (默认 $CARDBASE_CONFIG 或 ./cardbase.toml)")
}

// ExecuteContext 执行命令行
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore 连接数据库并迁移表结构
func openStore() (*store.Store, error) {
	st, err := store.Open(config.AppConfig.Database)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
