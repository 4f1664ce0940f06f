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

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

// BoardConfig describes one target board
type BoardConfig struct {
	Name       string `json:"name"`
	HighMemory bool   `json:"highMemory"`
	// ID is the link address the board sends trap frames from
	ID uint16 `json:"id"`
	// Agent is the debug agent address. Boards without an agent are
	// simulated.
	Agent string `json:"agent,omitempty"`
}

// Identity returns the board identity of the board
func (b *BoardConfig) Identity() board.Variant {
	return board.NewVariant(b.Name, b.HighMemory)
}

// FixupConfig is one recovery table entry, both addresses hexadecimal
type FixupConfig struct {
	Insn   string `json:"insn"`
	Resume string `json:"resume"`
}

type Config struct {
	LogLevel  string         `json:"logLevel"`
	IP        string         `json:"ip"`
	ApiPort   int            `json:"apiPort"`
	TrapPort  int            `json:"trapPort"`
	AgentPort int            `json:"agentPort"`
	DBPath    string         `json:"dbPath"`
	PollLimit int            `json:"pollLimit"`
	MemoryEnd string         `json:"memoryEnd"`
	Boards    []*BoardConfig `json:"boards"`
	Recovery  []*FixupConfig `json:"recovery,omitempty"`
	filepath  string
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		IP:        DefaultIP,
		ApiPort:   DefaultApiPort,
		TrapPort:  DefaultTrapPort,
		AgentPort: DefaultAgentPort,
		DBPath:    DefaultDBPath(),
		PollLimit: DefaultPollLimit,
		MemoryEnd: DefaultMemoryEnd,
		Boards: []*BoardConfig{
			{Name: DefaultBoardName, HighMemory: DefaultBoardHigh, ID: DefaultBoardID},
			{Name: DefaultSecondBoard, HighMemory: !DefaultBoardHigh, ID: DefaultBoardID + 1},
		},
		filepath: DefaultConfigPath(),
	}
}

// SetPath changes the file the config is loaded from and persisted to
func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. A missing file
// keeps the current values.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("Config file %s not found, using defaults", c.filepath)
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", c.filepath, err)
	}
	return nil
}

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Validate reports every problem in the config at once
func (c *Config) Validate() error {
	var result *multierror.Error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if net.ParseIP(c.IP) == nil {
		result = multierror.Append(result, fmt.Errorf("invalid IP %q", c.IP))
	}
	for name, port := range map[string]int{"apiPort": c.ApiPort, "trapPort": c.TrapPort, "agentPort": c.AgentPort} {
		if port <= 0 || port > 65535 {
			result = multierror.Append(result, fmt.Errorf("%s %d out of range", name, port))
		}
	}
	if c.PollLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("poll limit %d must be positive", c.PollLimit))
	}
	if _, err := parseAddr(c.MemoryEnd); err != nil {
		result = multierror.Append(result, fmt.Errorf("memoryEnd: %w", err))
	}
	seen := map[string]bool{}
	ids := map[uint16]bool{}
	for i, b := range c.Boards {
		switch {
		case b.Name == "":
			result = multierror.Append(result, fmt.Errorf("board %d has no name", i))
		case seen[b.Name]:
			result = multierror.Append(result, fmt.Errorf("duplicate board %s", b.Name))
		}
		seen[b.Name] = true
		switch {
		case b.ID == 0:
			result = multierror.Append(result, fmt.Errorf("board %s has no id", b.Name))
		case ids[b.ID]:
			result = multierror.Append(result, fmt.Errorf("board %s: duplicate id %d", b.Name, b.ID))
		}
		ids[b.ID] = true
		if b.Agent != "" {
			if _, _, err := net.SplitHostPort(b.Agent); err != nil {
				result = multierror.Append(result, fmt.Errorf("board %s agent: %w", b.Name, err))
			}
		}
	}
	if _, err := c.RecoveryTable(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// GetBoardByName ...
func (c *Config) GetBoardByName(name string) (*BoardConfig, error) {
	for _, b := range c.Boards {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, ErrBoardNotFound{Name: name}
}

// GetBoardByID ...
func (c *Config) GetBoardByID(id uint16) (*BoardConfig, error) {
	for _, b := range c.Boards {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ErrBoardNotFound{Name: fmt.Sprintf("id %d", id)}
}

// RecoveryTable builds the machine check recovery table
func (c *Config) RecoveryTable() (*fault.RecoveryTable, error) {
	var result *multierror.Error
	fixups := make([]fault.Fixup, 0, len(c.Recovery))
	for _, f := range c.Recovery {
		insn, err := parseAddr(f.Insn)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("recovery insn %q: %w", f.Insn, err))
			continue
		}
		resume, err := parseAddr(f.Resume)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("recovery resume %q: %w", f.Resume, err))
			continue
		}
		fixups = append(fixups, fault.Fixup{Insn: insn, Resume: resume})
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return fault.NewRecoveryTable(fixups)
}

// MemEnd returns the last address the backtrace may read
func (c *Config) MemEnd() uint32 {
	end, err := parseAddr(c.MemoryEnd)
	if err != nil {
		return 0
	}
	return end
}

func (c *Config) Poller() hw.Poller {
	return hw.Poller{Limit: c.PollLimit}
}

func (c *Config) ApiAddr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.ApiPort))
}

func (c *Config) TrapAddr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.TrapPort))
}

func (c *Config) AgentAddr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.AgentPort))
}
