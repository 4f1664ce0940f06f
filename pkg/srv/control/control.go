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

package control

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/gopacket"
	lru "github.com/hashicorp/golang-lru/v2"

	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/layers"
	"jinr.ru/greenlab/go-spl/pkg/link"
	"jinr.ru/greenlab/go-spl/pkg/log"
	"jinr.ru/greenlab/go-spl/pkg/srv"
	"jinr.ru/greenlab/go-spl/pkg/srv/control/ifc"
)

type sent struct {
	seq  uint16
	data []byte
}

type ControlServer struct {
	srv.Server
	state   *RegState
	api     ifc.ApiServer
	targets map[string]*Target

	mu   sync.Mutex
	last *lru.Cache[string, sent]
}

var _ ifc.ControlServer = &ControlServer{}

// NewControlServer ...
func NewControlServer(ctx context.Context, cfg *config.Config) (*ControlServer, error) {
	log.Debug("Initializing control server with address: %s", cfg.TrapAddr())

	uaddr, err := net.ResolveUDPAddr("udp", cfg.TrapAddr())
	if err != nil {
		return nil, err
	}

	last, err := lru.New[string, sent](link.ResendCacheSize)
	if err != nil {
		return nil, err
	}

	targets := map[string]*Target{}
	for _, bc := range cfg.Boards {
		t, err := NewTarget(cfg, bc)
		if err != nil {
			return nil, err
		}
		targets[bc.Name] = t
	}

	regState, err := NewRegState(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &ControlServer{
		Server: srv.Server{
			Context: ctx,
			Config:  cfg,
			UDPAddr: uaddr,
			ChIn:    make(chan srv.InPacket),
			ChOut:   make(chan srv.OutPacket),
		},
		state:   regState,
		targets: targets,
		last:    last,
	}
	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		regState.Close()
		return nil, err
	}
	s.api = apiServer
	return s, nil
}

// Close releases the state database and the links to remote boards
func (s *ControlServer) Close() {
	s.state.Close()
	for _, t := range s.targets {
		t.Close()
	}
}

func (s *ControlServer) Run() error {
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}
	return s.Serve(conn)
}

// Serve listens for trap frames on conn and runs the API server until the
// context is done or one of them fails. conn is closed on return.
func (s *ControlServer) Serve(conn *net.UDPConn) error {
	defer conn.Close()
	defer s.Close()

	errChan := make(chan error, 4)

	// Read UDP packets from wire and put them to input queue
	go func() {
		buffer := make([]byte, 65536)
		for {
			length, udpAddr, readErr := conn.ReadFromUDP(buffer)
			if readErr != nil {
				errChan <- readErr
				return
			}
			data := make([]byte, length)
			copy(data, buffer[:length])
			captureInfo := gopacket.CaptureInfo{
				Length:        length,
				CaptureLength: length,
				Timestamp:     time.Now(),
				AncillaryData: []interface{}{udpAddr},
			}
			select {
			case s.ChIn <- srv.InPacket{Data: data, CaptureInfo: captureInfo}:
			case <-s.Context.Done():
				return
			}
		}
	}()

	// Read captured packets from input queue, dispatch traps and queue the
	// responses
	go func() {
		source := gopacket.NewPacketSource(s, layers.MLinkLayerType)
		for packet := range source.Packets() {
			out, packetErr := s.handlePacket(packet)
			if packetErr != nil {
				log.Warning("Drop trap packet: %s", packetErr)
				continue
			}
			select {
			case s.ChOut <- *out:
			case <-s.Context.Done():
				return
			}
		}
	}()

	// Read packets from output queue and send them to wire
	go func() {
		for {
			select {
			case outPacket := <-s.ChOut:
				if _, sendErr := conn.WriteToUDP(outPacket.Data, outPacket.UDPAddr); sendErr != nil {
					log.Error("Error while sending data to %s", outPacket.UDPAddr)
					errChan <- sendErr
					return
				}
			case <-s.Context.Done():
				return
			}
		}
	}()

	go func() {
		errChan <- s.api.Run()
	}()

	select {
	case <-s.Context.Done():
		return s.Context.Err()
	case err := <-errChan:
		return err
	}
}

// handlePacket dispatches one trap frame and returns the response. A frame
// repeating the previous sequence number of the same peer is answered from
// the cache so a resent trap is counted once.
func (s *ControlServer) handlePacket(packet gopacket.Packet) (*srv.OutPacket, error) {
	peer, err := srv.GetAddrPort(packet)
	if err != nil {
		return nil, err
	}
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	mlLayer := packet.Layer(layers.MLinkLayerType)
	trapLayer := packet.Layer(layers.TrapLayerType)
	if mlLayer == nil || trapLayer == nil {
		return nil, srv.ErrUnknownOperation{What: "not a trap frame"}
	}
	ml := mlLayer.(*layers.MLinkLayer)
	if ml.Type != layers.MLinkTypeTrapRequest {
		return nil, srv.ErrUnknownOperation{What: ml.Type.String()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := peer.String()
	if c, ok := s.last.Get(key); ok && c.seq == ml.Seq {
		log.Debug("Resending trap response %d to %s", ml.Seq, key)
		return &srv.OutPacket{Data: c.data, UDPAddr: peer}, nil
	}

	t, err := s.GetTargetByID(ml.Src)
	if err != nil {
		return nil, err
	}
	trap := trapLayer.(*layers.TrapLayer)
	rec := trap.Record
	report, err := t.Trap(&rec)
	if err != nil {
		return nil, err
	}
	s.persist(report)

	action := fault.Resume
	if report.Action == fault.Halt.String() {
		action = fault.Halt
	}
	data, err := layers.Frame(layers.MLinkHeader{
		Type: layers.MLinkTypeTrapResponse,
		Seq:  ml.Seq,
		Src:  ml.Dst,
		Dst:  ml.Src,
	}, &layers.TrapLayer{
		Record: rec,
		Action: action,
		Count:  uint32(report.Tally.Count),
	})
	if err != nil {
		return nil, err
	}
	s.last.Add(key, sent{seq: ml.Seq, data: data})
	return &srv.OutPacket{Data: data, UDPAddr: peer}, nil
}

func (s *ControlServer) persist(report *Report) {
	if err := s.state.SetReport(report, report.Board); err != nil {
		log.Error("Error while storing fault report of %s: %s", report.Board, err)
	}
	if err := s.state.SetTally(report.Tally, report.Board); err != nil {
		log.Error("Error while storing tally of %s: %s", report.Board, err)
	}
}

// Handler returns the HTTP handler of the API server
func (s *ControlServer) Handler() http.Handler {
	return s.api.Handler()
}

func (s *ControlServer) GetTargetByName(name string) (*Target, error) {
	t, ok := s.targets[name]
	if !ok {
		return nil, config.ErrBoardNotFound{Name: name}
	}
	return t, nil
}

func (s *ControlServer) GetTargetByID(id uint16) (*Target, error) {
	bc, err := s.Config.GetBoardByID(id)
	if err != nil {
		return nil, err
	}
	return s.GetTargetByName(bc.Name)
}

// Boot boots the board and stores its register state
func (s *ControlServer) Boot(name string, req *BootRequest) (*BootResult, error) {
	t, err := s.GetTargetByName(name)
	if err != nil {
		return nil, err
	}
	result, regs, err := t.Boot(req)
	if err != nil {
		return nil, err
	}
	if err := s.state.SetRegs(regs, name); err != nil {
		return nil, err
	}
	if err := s.state.SetTally(fault.Tally{}, name); err != nil {
		return nil, err
	}
	return result, nil
}

// Fault raises an exception on the board and stores the outcome
func (s *ControlServer) Fault(name string, req *FaultRequest) (*Report, error) {
	t, err := s.GetTargetByName(name)
	if err != nil {
		return nil, err
	}
	report, err := t.Fault(req)
	if err != nil {
		return nil, err
	}
	s.persist(report)
	return report, nil
}

func (s *ControlServer) LastFault(name string) (*Report, error) {
	if _, err := s.GetTargetByName(name); err != nil {
		return nil, err
	}
	return s.state.GetReport(name)
}

func (s *ControlServer) Tally(name string) (fault.Tally, error) {
	if _, err := s.GetTargetByName(name); err != nil {
		return fault.Tally{}, err
	}
	return s.state.GetTally(name)
}

func (s *ControlServer) RegRead(addr uint32, name string) (*hw.Reg, error) {
	if _, err := s.GetTargetByName(name); err != nil {
		return nil, err
	}
	return s.state.GetReg(addr, name)
}

func (s *ControlServer) RegReadAll(name string) ([]hw.Reg, error) {
	if _, err := s.GetTargetByName(name); err != nil {
		return nil, err
	}
	return s.state.GetRegAll(name)
}

// Boards returns the status of all boards ordered by name
func (s *ControlServer) Boards() []*BoardStatus {
	var result []*BoardStatus
	for _, t := range s.targets {
		result = append(result, t.Status())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func (s *ControlServer) String() string {
	return fmt.Sprintf("control server %s", s.UDPAddr)
}
