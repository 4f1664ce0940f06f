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
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

const (
	RegBucketPrefix   = "reg_"
	FaultBucketPrefix = "fault_"

	reportKey = "report"
	tallyKey  = "tally"
)

// RegState keeps the register file of every board after its last boot and
// the outcome of its last fault
type RegState struct {
	context.Context
	DB *bbolt.DB
}

func NewRegState(ctx context.Context, cfg *config.Config) (*RegState, error) {
	db, err := bbolt.Open(cfg.DBPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	// create buckets for all boards
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range cfg.Boards {
			for _, name := range []string{regBucket(b.Name), faultBucket(b.Name)} {
				if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &RegState{
		Context: ctx,
		DB:      db,
	}, nil
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func regBucket(boardName string) string {
	return fmt.Sprintf("%s%s", RegBucketPrefix, boardName)
}

func faultBucket(boardName string) string {
	return fmt.Sprintf("%s%s", FaultBucketPrefix, boardName)
}

// Close ...
func (s *RegState) Close() {
	s.DB.Close()
}

// SetRegs replaces the register snapshot of the board
func (s *RegState) SetRegs(regs []hw.Reg, boardName string) error {
	log.Debug("Storing %d registers for board %s", len(regs), boardName)
	name := []byte(regBucket(boardName))
	return s.DB.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(name) == nil {
			return ErrBucketNotFound{Name: string(name)}
		}
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}
		for _, reg := range regs {
			if err := b.Put(uint32ToByte(reg.Addr), uint32ToByte(reg.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetReg ...
func (s *RegState) GetReg(addr uint32, boardName string) (*hw.Reg, error) {
	log.Debug("Getting register: Addr: %08x", addr)
	var value uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		name := regBucket(boardName)
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrBucketNotFound{Name: name}
		}
		valueBytes := b.Get(uint32ToByte(addr))
		if valueBytes == nil {
			return ErrKeyNotFound{Bucket: name, Key: fmt.Sprintf("0x%08x", addr)}
		}
		value = binary.BigEndian.Uint32(valueBytes)
		return nil
	}); err != nil {
		return nil, err
	}
	return &hw.Reg{Addr: addr, Value: value}, nil
}

// GetRegAll returns the snapshot in address order
func (s *RegState) GetRegAll(boardName string) ([]hw.Reg, error) {
	log.Debug("Getting all registers of board %s", boardName)
	var regs []hw.Reg
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		name := regBucket(boardName)
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrBucketNotFound{Name: name}
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			regs = append(regs, hw.Reg{
				Addr:  binary.BigEndian.Uint32(k),
				Value: binary.BigEndian.Uint32(v),
			})
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *RegState) put(boardName, key string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		name := faultBucket(boardName)
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrBucketNotFound{Name: name}
		}
		return b.Put([]byte(key), data)
	})
}

func (s *RegState) get(boardName, key string, v interface{}) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		name := faultBucket(boardName)
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrBucketNotFound{Name: name}
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrKeyNotFound{Bucket: name, Key: key}
		}
		return yaml.Unmarshal(data, v)
	})
}

func (s *RegState) SetReport(report *Report, boardName string) error {
	return s.put(boardName, reportKey, report)
}

func (s *RegState) GetReport(boardName string) (*Report, error) {
	report := &Report{}
	if err := s.get(boardName, reportKey, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *RegState) SetTally(tally fault.Tally, boardName string) error {
	return s.put(boardName, tallyKey, tally)
}

// GetTally returns the stored tally, a zero tally if the board never
// faulted
func (s *RegState) GetTally(boardName string) (fault.Tally, error) {
	var tally fault.Tally
	err := s.get(boardName, tallyKey, &tally)
	if _, ok := err.(ErrKeyNotFound); ok {
		return fault.Tally{}, nil
	}
	return tally, err
}
