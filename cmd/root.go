/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spl/cmd/agent"
	"jinr.ru/greenlab/go-spl/cmd/board"
	"jinr.ru/greenlab/go-spl/cmd/boot"
	"jinr.ru/greenlab/go-spl/cmd/completion"
	"jinr.ru/greenlab/go-spl/cmd/config"
	"jinr.ru/greenlab/go-spl/cmd/fault"
	"jinr.ru/greenlab/go-spl/cmd/reg"
	"jinr.ru/greenlab/go-spl/cmd/server"
	pkgconfig "jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:          "go-spl",
		Short:        "Tool to boot AM33xx boards and inspect their exceptions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			loadErr := cfg.Load()
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			// config commands have to work with a broken file
			if cmd.Parent() != nil && cmd.Parent().Name() == config.CommandName {
				return nil
			}
			if loadErr != nil {
				return loadErr
			}
			return cfg.Validate()
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(boot.NewCommand(cfg))
	cmd.AddCommand(server.NewCommand(cfg))
	cmd.AddCommand(agent.NewCommand(cfg))
	cmd.AddCommand(reg.NewCommand(cfg))
	cmd.AddCommand(fault.NewCommand(cfg))
	cmd.AddCommand(fault.NewTallyCommand(cfg))
	cmd.AddCommand(board.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file. Default %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
