package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardbase/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建或更新数据表",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		log.Info("database migrated", zap.String("driver", config.AppConfig.Database.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
