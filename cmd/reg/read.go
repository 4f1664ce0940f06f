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

package reg

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spl/pkg/command"
	"jinr.ru/greenlab/go-spl/pkg/config"
)

const (
	AddrOptionName = "addr"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Register state commands",
	}
	cmd.AddCommand(NewReadCommand(cfg))
	return cmd
}

func NewReadCommand(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "read <board>",
		Short: "Read register state stored after the last boot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			if addr != "" {
				value, err := apiClient.RegRead(args[0], addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Register state: %s = %s\n", addr, value)
				return nil
			}
			regs, err := apiClient.RegReadAll(args[0])
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetTitle("Registers of %s", args[0])
			t.AppendHeader(table.Row{"Address", "Value"})
			for _, reg := range regs {
				t.AppendRow(table.Row{reg.Addr, reg.Value})
			}
			t.AppendFooter(table.Row{"Total", len(regs)})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address (hexadecimal)")
	return cmd
}
