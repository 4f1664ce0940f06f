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

package board

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spl/pkg/command"
	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/entry"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List boards known to the control server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boards, err := command.NewApiClient(cfg).Boards()
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Name", "ID", "Profile", "Memory", "Agent", "Booted", "Halted"})
			for _, b := range boards {
				agent := b.Agent
				if agent == "" {
					agent = "simulated"
				}
				bc := config.BoardConfig{Name: b.Name, HighMemory: b.HighMemory}
				memory := humanize.IBytes(uint64(entry.MemorySize(bc.Identity())))
				t.AppendRow(table.Row{b.Name, b.ID, b.Profile, memory, agent, b.Booted, b.Halted})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}
