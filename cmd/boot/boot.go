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

package boot

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/command"
	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/entry"
	"jinr.ru/greenlab/go-spl/pkg/srv/control"
)

const (
	BootInfoOptionName = "boot-info"
	FailOptionName     = "fail"
	RunningOptionName  = "running"
	ServerOptionName   = "server"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var server bool
	req := &control.BootRequest{}
	cmd := &cobra.Command{
		Use:   "boot <board>",
		Short: "Boot a board",
		Long: "Boot a simulated board in process and show the outcome. With --server the\n" +
			"control server boots the board and keeps its state.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if server {
				result, err := command.NewApiClient(cfg).Boot(args[0], req)
				if err != nil {
					return err
				}
				printResult(cmd, result, "")
				return nil
			}
			return bootLocal(cmd, cfg, args[0], req)
		},
	}
	cmd.Flags().StringVar(&req.BootInfo, BootInfoOptionName, "", "Boot parameter pointer (hexadecimal)")
	cmd.Flags().StringVar(&req.Fail, FailOptionName, "",
		fmt.Sprintf("Simulated failure: %s, %s or %s", control.FailTraining, control.FailWatchdog, control.FailConsole))
	cmd.Flags().BoolVar(&req.Running, RunningOptionName, false, "Board already runs from SDRAM")
	cmd.Flags().BoolVar(&server, ServerOptionName, false, "Boot through the control server")
	return cmd
}

func bootLocal(cmd *cobra.Command, cfg *config.Config, name string, req *control.BootRequest) error {
	bc, err := cfg.GetBoardByName(name)
	if err != nil {
		return err
	}
	opts, err := control.SimOptions(req)
	if err != nil {
		return err
	}
	bootInfo, err := control.ParseHex32(req.BootInfo)
	if err != nil {
		return err
	}
	id := bc.Identity()
	b, bootErr := command.BootLocal(cfg, id, opts, bootInfo)

	result := &control.BootResult{
		Board:     name,
		Profile:   board.ProfileFor(id).Name,
		Console:   b.Console(),
		Registers: len(b.Snapshot()),
	}
	if h := b.Handoff(); h != nil {
		result.Base = control.Hex32(h.Base)
		result.Size = h.Size
	}
	if halts := b.Halted(); len(halts) > 0 {
		result.Halted = halts[len(halts)-1]
	}
	if bootErr != nil {
		result.Error = bootErr.Error()
	}
	printResult(cmd, result, humanize.Comma(int64(len(b.Writes()))))
	return bootErr
}

func printResult(cmd *cobra.Command, result *control.BootResult, writes string) {
	window := "-"
	if result.Base != "" {
		base, _ := control.ParseHex32(result.Base)
		window = entry.MemoryWindow{Base: base, Size: result.Size}.String()
	}
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("Boot %s", result.Board)
	t.AppendRow(table.Row{"Profile", result.Profile})
	t.AppendRow(table.Row{"Memory window", window})
	t.AppendRow(table.Row{"Console", fmt.Sprintf("%q", result.Console)})
	t.AppendRow(table.Row{"Registers", humanize.Comma(int64(result.Registers))})
	if writes != "" {
		t.AppendRow(table.Row{"Register writes", writes})
	}
	if result.Halted != "" {
		t.AppendRow(table.Row{"Halted", result.Halted})
	}
	t.Render()
}
