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

package command

import (
	"context"
	"os"
	"os/signal"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/boot"
	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/entry"
	"jinr.ru/greenlab/go-spl/pkg/link"
	"jinr.ru/greenlab/go-spl/pkg/sim"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
	"jinr.ru/greenlab/go-spl/pkg/srv/control"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// StartControlServer ...
func StartControlServer(cfg *config.Config) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := control.NewControlServer(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Run()
}

// StartAgent serves a simulated board of the given identity on the debug
// link until interrupted
func StartAgent(cfg *config.Config, id board.Identity, opts sim.Options) error {
	ctx, cancel := signalContext()
	defer cancel()

	b := sim.NewBoard(id, opts)
	return link.NewAgent(b).ListenAndServe(ctx, cfg.AgentAddr())
}

// BootLocal runs the boot sequence against a simulated board in process
func BootLocal(cfg *config.Config, id board.Identity, opts sim.Options, bootInfo uint32) (*sim.Board, error) {
	b := sim.NewBoard(id, opts)
	p := cfg.Poller()
	seq := boot.NewSequencer(b, p, am33xx.NewUART(b, p, am33xx.UART0Base), b.Running)
	err := entry.NewTrampoline(b, seq, id, b, b).Reset(bootInfo)
	return b, err
}
