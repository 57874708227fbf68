// Copyright 2025 rowsim Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"os"

	"github.com/rowsim-io/rowsim/base/log"
	"github.com/rowsim-io/rowsim/config"
	"github.com/rowsim-io/rowsim/job"
	"github.com/rowsim-io/rowsim/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rowsimCommand = &cobra.Command{
	Use:   "rowsim",
	Short: "Item similarity and top-N recommendation pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)
		configPath, _ := cmd.PersistentFlags().GetString("config")
		conf, err := config.Load(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load configuration",
				zap.String("config", configPath), zap.Error(err))
		}
		skipNames, _ := cmd.PersistentFlags().GetStringSlice("skip")
		skip := make([]job.Phase, 0, len(skipNames))
		for _, name := range skipNames {
			skip = append(skip, job.Phase(name))
		}
		runner, err := job.NewRunner(conf, store.NewPOSIX(conf.Engine.OutputDir), skip)
		if err != nil {
			log.Logger().Fatal("failed to create runner", zap.Error(err))
		}
		if err = runner.Run(context.Background()); err != nil {
			log.Logger().Error("pipeline failed", zap.Error(err))
			log.CloseLogger()
			os.Exit(1)
		}
		log.CloseLogger()
	},
}

func init() {
	rowsimCommand.PersistentFlags().StringP("config", "c", "config.toml", "Configuration file path.")
	rowsimCommand.PersistentFlags().StringSlice("skip", nil, "Phases to skip.")
	rowsimCommand.PersistentFlags().Bool("debug", false, "Debug log mode.")
	log.AddFlags(rowsimCommand.PersistentFlags())
}

func main() {
	if err := rowsimCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
