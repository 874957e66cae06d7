package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardbase/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <cards.csv>",
	Short: "把采集生成的CSV导入数据库",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := importer.New(st, log).ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		log.Info("csv imported", zap.String("file", args[0]), zap.Int("rows", res.Rows), zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
