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

package agent

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spl/pkg/command"
	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/log"
	"jinr.ru/greenlab/go-spl/pkg/srv/control"
)

const (
	FailOptionName = "fail"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Debug agent commands",
	}
	cmd.AddCommand(NewStartCommand(cfg))
	return cmd
}

// NewStartCommand serves a simulated board on the debug link, standing in
// for the agent running on a real target
func NewStartCommand(cfg *config.Config) *cobra.Command {
	req := &control.BootRequest{}
	cmd := &cobra.Command{
		Use:   "start <board>",
		Short: "Serve a simulated board on the debug link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := cfg.GetBoardByName(args[0])
			if err != nil {
				return err
			}
			opts, err := control.SimOptions(req)
			if err != nil {
				return err
			}
			log.Info("Serving simulated board %s on %s", bc.Name, cfg.AgentAddr())
			return command.StartAgent(cfg, bc.Identity(), opts)
		},
	}
	cmd.Flags().StringVar(&req.Fail, FailOptionName, "", "Simulated failure")
	return cmd
}
