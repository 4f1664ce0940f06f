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

package fault

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spl/pkg/command"
	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/srv/control"
)

const (
	VectorOptionName = "vector"
	NIPOptionName    = "nip"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fault",
		Short: "Exception commands",
	}
	cmd.AddCommand(NewInjectCommand(cfg))
	cmd.AddCommand(NewLastCommand(cfg))
	return cmd
}

func NewInjectCommand(cfg *config.Config) *cobra.Command {
	req := &control.FaultRequest{}
	cmd := &cobra.Command{
		Use:   "inject <board>",
		Short: "Raise an exception on a booted board",
		Example: `
Machine check on a bus read error
# go-spl fault inject bone --vector machine-check --nip 0x80001000 --mcsr 0x00000008

Program check on a privileged instruction
# go-spl fault inject evm --vector program --nip 0x80002000 --esr 0x04000000
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := req.Record(); err != nil {
				return err
			}
			report, err := command.NewApiClient(cfg).Fault(args[0], req)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Vector, VectorOptionName, "", fmt.Sprintf("Exception vector name or number. One of %s", vectorNames()))
	cmd.MarkFlagRequired(VectorOptionName)
	cmd.Flags().StringVar(&req.NIP, NIPOptionName, "", "Address of the faulting instruction")
	cmd.MarkFlagRequired(NIPOptionName)
	cmd.Flags().StringVar(&req.LR, "lr", "", "Link register")
	cmd.Flags().StringVar(&req.MSR, "msr", "", "Machine state register")
	cmd.Flags().StringVar(&req.DAR, "dar", "", "Data address register")
	cmd.Flags().StringVar(&req.SP, "sp", "", "Stack pointer the backtrace starts at")
	cmd.Flags().StringVar(&req.ESR, "esr", "", "Exception syndrome register")
	cmd.Flags().StringVar(&req.MCSR, "mcsr", "", "Machine check syndrome register")
	cmd.Flags().StringVar(&req.MCAR, "mcar", "", "Machine check address register")
	return cmd
}

func NewLastCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last <board>",
		Short: "Show the last exception report of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := command.NewApiClient(cfg).LastFault(args[0])
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
	return cmd
}

func NewTallyCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tally <board>",
		Short: "Show the machine check tally of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tally, err := command.NewApiClient(cfg).Tally(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s machine check (ceiling %d)\n",
				args[0], humanize.Ordinal(tally.Count), fault.MachineCheckCeiling)
			return nil
		},
	}
	return cmd
}

func vectorNames() []string {
	var names []string
	for _, v := range fault.Vectors {
		names = append(names, v.String())
	}
	return names
}

func printReport(cmd *cobra.Command, report *control.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.Text)
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("%s exception on %s", report.Vector, report.Board)
	t.AppendRow(table.Row{"NIP", report.NIP})
	t.AppendRow(table.Row{"Action", report.Action})
	t.AppendRow(table.Row{"Resume at", report.Resume})
	t.AppendRow(table.Row{"Machine checks", report.Tally.Count})
	if mc := report.MachineCheck; mc != nil {
		t.AppendRow(table.Row{"MCSR", control.Hex32(mc.MCSR)})
		t.AppendRow(table.Row{"MCAR", control.Hex32(mc.MCAR)})
	}
	if report.Halted != "" {
		t.AppendRow(table.Row{"Halted", report.Halted})
	}
	t.AppendRow(table.Row{"Time", humanize.Time(report.Time)})
	t.Render()
}
