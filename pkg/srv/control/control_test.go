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
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/layers"
	"jinr.ru/greenlab/go-spl/pkg/link"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "state.db")
	cfg.ApiPort = 0
	cfg.TrapPort = 0
	cfg.Recovery = []*config.FixupConfig{{Insn: "0x2000", Resume: "0x2100"}}
	return cfg
}

func newTestServer(t *testing.T) (*ControlServer, *httptest.Server) {
	s, err := NewControlServer(context.Background(), testConfig(t))
	require.NoError(t, err)
	ts := httptest.NewServer(s.api.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url string, body interface{}, out interface{}) int {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestBootAndRegisters(t *testing.T) {
	_, ts := newTestServer(t)

	result := &BootResult{}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/bone", nil, result))
	assert.Equal(t, "bone", result.Board)
	assert.Equal(t, "ddr3", result.Profile)
	assert.Equal(t, "0x80000000", result.Base)
	assert.Equal(t, uint32(512<<20), result.Size)
	assert.Equal(t, ">", result.Console)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.Halted)
	assert.NotZero(t, result.Registers)

	reg := &RegHex{}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/reg/r/bone/"+Hex32(am33xx.WDTWSPR), nil, reg))
	assert.Equal(t, &RegHex{Addr: Hex32(am33xx.WDTWSPR), Value: Hex32(am33xx.WDTDisableCode2)}, reg)

	var regs []*RegHex
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/reg/r/bone", nil, &regs))
	assert.Len(t, regs, result.Registers)
	for i := 1; i < len(regs); i++ {
		assert.Less(t, regs[i-1].Addr, regs[i].Addr)
	}

	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/api/reg/r/bone/0x00000004", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/api/reg/r/nosuch", nil, nil))
}

func TestBootFailure(t *testing.T) {
	_, ts := newTestServer(t)

	result := &BootResult{}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/evm", &BootRequest{Fail: FailTraining}, result))
	assert.Equal(t, "ddr2", result.Profile)
	assert.NotEmpty(t, result.Error)
	assert.True(t, strings.HasPrefix(result.Halted, "boot failed"), result.Halted)
	assert.Empty(t, result.Base)
	assert.Empty(t, result.Console)

	var boards []*BoardStatus
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/boards", nil, &boards))
	require.Len(t, boards, 2)
	assert.Equal(t, "bone", boards[0].Name)
	assert.False(t, boards[0].Booted)
	assert.Equal(t, "evm", boards[1].Name)
	assert.True(t, boards[1].Booted)
	assert.Equal(t, result.Halted, boards[1].Halted)
}

func TestBootBadRequest(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, "POST", ts.URL+"/api/boot/nosuch", nil, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, "POST", ts.URL+"/api/boot/evm", &BootRequest{Fail: "smoke"}, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, "POST", ts.URL+"/api/boot/evm", &BootRequest{BootInfo: "nope"}, nil))
}

func TestFaultBeforeBoot(t *testing.T) {
	_, ts := newTestServer(t)
	req := &FaultRequest{Vector: "pit", NIP: "0x1000"}
	assert.Equal(t, http.StatusConflict, do(t, "POST", ts.URL+"/api/fault/evm", req, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, "POST", ts.URL+"/api/fault/evm", &FaultRequest{Vector: "bogus"}, nil))
	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/api/fault/evm", nil, nil))

	tally := fault.Tally{}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/tally/evm", nil, &tally))
	assert.Equal(t, fault.Tally{}, tally)
}

func TestMachineCheckEscalation(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/evm", nil, nil))

	req := &FaultRequest{Vector: "machine-check", NIP: "0x1000", MCSR: "0x80000008", MCAR: "0xdeadbeef"}
	for i := 1; i <= fault.MachineCheckCeiling+1; i++ {
		report := &Report{}
		require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/fault/evm", req, report))
		assert.Equal(t, i, report.Tally.Count)
		assert.True(t, report.Tally.Occurred)
		require.NotNil(t, report.MachineCheck)
		assert.Equal(t, uint32(0x80000008), report.MachineCheck.MCSR)
		assert.Equal(t, uint32(0xdeadbeef), report.MachineCheck.MCAR)
		assert.Contains(t, report.Text, "Machine check in kernel mode.")
		assert.Contains(t, report.Text, "Machine check input pin")
		assert.Contains(t, report.Text, "Bus Read data bus error")
		switch {
		case i == 1:
			assert.Equal(t, "resume", report.Action)
			assert.Equal(t, "0x00001000", report.Resume)
		case i <= fault.MachineCheckCeiling:
			assert.Equal(t, "resume", report.Action)
			assert.Equal(t, "0x00001004", report.Resume)
		default:
			assert.Equal(t, "halt", report.Action)
			assert.Equal(t, "machine check count too high", report.Halted)
		}
	}

	tally := fault.Tally{}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/tally/evm", nil, &tally))
	assert.Equal(t, fault.Tally{Count: fault.MachineCheckCeiling + 1, Occurred: true}, tally)

	last := &Report{}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/fault/evm", nil, last))
	assert.Equal(t, "halt", last.Action)

	// a new boot starts a new tally
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/evm", nil, nil))
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/tally/evm", nil, &tally))
	assert.Equal(t, fault.Tally{}, tally)
}

func TestRecoveryTableHit(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/bone", nil, nil))

	report := &Report{}
	req := &FaultRequest{Vector: "machine-check", NIP: "0x2000", MCSR: "0x80000000"}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/fault/bone", req, report))
	assert.Equal(t, "resume", report.Action)
	assert.Equal(t, "0x00002100", report.Resume)
	assert.Equal(t, fault.Tally{}, report.Tally)
	assert.Nil(t, report.MachineCheck)
}

func TestProgramCheck(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/bone", nil, nil))

	report := &Report{}
	req := &FaultRequest{Vector: "program", NIP: "0x3000", ESR: Hex32(fault.ESRPPR)}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/fault/bone", req, report))
	assert.Equal(t, "halt", report.Action)
	assert.Equal(t, "Program Check Exception", report.Halted)
	assert.Contains(t, report.Text, "** Privileged Instruction **")
}

func TestFaultBadSyndrome(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/bone", nil, nil))

	for _, req := range []*FaultRequest{
		{Vector: "machine-check", NIP: "0x1000", MCSR: "zz"},
		{Vector: "machine-check", NIP: "0x1000", MCAR: "0x1g"},
		{Vector: "program", NIP: "0x1000", ESR: "-1"},
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, "POST", ts.URL+"/api/fault/bone", req, nil))
	}
	assert.Equal(t, http.StatusBadRequest, do(t, "POST", ts.URL+"/api/fault/bone", &FaultRequest{Vector: "0x2zz", NIP: "0x1000"}, nil))

	tally := fault.Tally{}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/tally/bone", nil, &tally))
	assert.Equal(t, fault.Tally{}, tally)
}

func TestHaltedBoardReportsNoMachineCheck(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/boot/bone", nil, nil))

	report := &Report{}
	req := &FaultRequest{Vector: "machine-check", NIP: "0x1000", MCSR: "0x8"}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/fault/bone", req, report))
	require.NotNil(t, report.MachineCheck)
	assert.Equal(t, uint32(0x8), report.MachineCheck.MCSR)

	report = &Report{}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/fault/bone", &FaultRequest{Vector: "alignment", NIP: "0x1000"}, report))
	require.Equal(t, "halt", report.Action)

	report = &Report{}
	req = &FaultRequest{Vector: "machine-check", NIP: "0x1000", MCSR: "0x1"}
	require.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/api/fault/bone", req, report))
	assert.Equal(t, "halt", report.Action)
	assert.Nil(t, report.MachineCheck)
	assert.Equal(t, 1, report.Tally.Count)

	last := &Report{}
	require.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/api/fault/bone", nil, last))
	assert.Nil(t, last.MachineCheck)
}

func TestSwagger(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/swagger.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/docs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// every API route is documented
	doc, err := Document()
	require.NoError(t, err)
	paths := doc.Spec().Paths.Paths
	api := s.api.(*ApiServer)
	require.NoError(t, api.Router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil || !strings.HasPrefix(tmpl, "/api/") {
			return nil
		}
		tmpl = strings.TrimPrefix(tmpl, "/api")
		tmpl = strings.Replace(tmpl, "{addr:0x[0-9a-fA-F]{1,8}}", "{addr}", 1)
		_, ok := paths[tmpl]
		assert.True(t, ok, "%s is not documented", tmpl)
		return nil
	}))
}

func trapPacket(t *testing.T, peer *net.UDPAddr, seq, src uint16, rec fault.Record) gopacket.Packet {
	data, err := layers.Frame(layers.MLinkHeader{
		Type: layers.MLinkTypeTrapRequest,
		Seq:  seq,
		Src:  src,
		Dst:  layers.MLinkHostAddr,
	}, &layers.TrapLayer{Record: rec})
	require.NoError(t, err)
	packet := gopacket.NewPacket(data, layers.MLinkLayerType, gopacket.Default)
	packet.Metadata().AncillaryData = []interface{}{peer}
	return packet
}

func TestTrapResendCountedOnce(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.Boot("evm", &BootRequest{})
	require.NoError(t, err)

	peer := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}
	rec := fault.Record{Vector: fault.VectorMachineCheck, NIP: 0x1000}
	first, err := s.handlePacket(trapPacket(t, peer, 7, 3, rec))
	require.NoError(t, err)
	again, err := s.handlePacket(trapPacket(t, peer, 7, 3, rec))
	require.NoError(t, err)
	assert.Equal(t, first.Data, again.Data)

	tally, err := s.Tally("evm")
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Count)

	_, err = s.handlePacket(trapPacket(t, peer, 8, 3, rec))
	require.NoError(t, err)
	tally, err = s.Tally("evm")
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Count)

	// unknown board
	_, err = s.handlePacket(trapPacket(t, peer, 9, 42, rec))
	var notFound config.ErrBoardNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestTrapResendCacheBounded(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.Boot("evm", &BootRequest{})
	require.NoError(t, err)

	rec := fault.Record{Vector: fault.VectorDebug, NIP: 0x1000}
	for i := 0; i < link.ResendCacheSize+4; i++ {
		peer := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 10000 + i}
		_, err := s.handlePacket(trapPacket(t, peer, 1, 3, rec))
		require.NoError(t, err)
	}
	assert.Equal(t, link.ResendCacheSize, s.last.Len())
	_, ok := s.last.Get("127.0.0.1:10000")
	assert.False(t, ok)
}

func TestTrapListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := NewControlServer(ctx, testConfig(t))
	require.NoError(t, err)
	_, err = s.Boot("evm", &BootRequest{})
	require.NoError(t, err)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(conn)
	}()

	client, err := link.Dial(conn.LocalAddr().String(), link.Options{Src: 3})
	require.NoError(t, err)
	defer client.Close()

	rec := &fault.Record{Vector: fault.VectorMachineCheck, NIP: 0x1000}
	action, tally, err := client.Trap(rec)
	require.NoError(t, err)
	assert.Equal(t, fault.Resume, action)
	assert.Equal(t, 1, tally.Count)
	assert.Equal(t, uint32(0x1000), rec.NIP)

	action, tally, err = client.Trap(rec)
	require.NoError(t, err)
	assert.Equal(t, fault.Resume, action)
	assert.Equal(t, 2, tally.Count)
	assert.Equal(t, uint32(0x1004), rec.NIP)

	action, _, err = client.Trap(&fault.Record{Vector: fault.VectorAlignment, NIP: 0x4000})
	require.NoError(t, err)
	assert.Equal(t, fault.Halt, action)

	report, err := s.LastFault("evm")
	require.NoError(t, err)
	assert.Equal(t, "alignment", report.Vector)
	assert.Equal(t, "Alignment Exception", report.Halted)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
