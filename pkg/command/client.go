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
	"errors"
	"fmt"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/srv/control"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddr()),
	}
}

// check turns a non 200 response into an error carrying the body the
// server sent along
func check(r *req.Resp) error {
	if r.Response().StatusCode == 200 {
		return nil
	}
	if msg := strings.TrimSpace(r.String()); msg != "" {
		return fmt.Errorf("%s: %s", r.Response().Status, msg)
	}
	return errors.New(r.Response().Status)
}

func (c *ApiClient) get(url string, v interface{}) error {
	r, err := req.Get(url)
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	return r.ToJSON(v)
}

func (c *ApiClient) post(url string, body, v interface{}) error {
	r, err := req.Post(url, req.BodyJSON(body))
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	return r.ToJSON(v)
}

// Boot sends request to boot a board
func (c *ApiClient) Boot(board string, request *control.BootRequest) (*control.BootResult, error) {
	result := &control.BootResult{}
	if err := c.post(fmt.Sprintf("%s/boot/%s", c.ApiPrefix, board), request, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RegRead sends request to get the value a register had after the last boot
func (c *ApiClient) RegRead(board, addr string) (string, error) {
	reg := &control.RegHex{}
	if err := c.get(fmt.Sprintf("%s/reg/r/%s/%s", c.ApiPrefix, board, addr), reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll sends request to get all registers of a board in address order
func (c *ApiClient) RegReadAll(board string) ([]*control.RegHex, error) {
	var regs []*control.RegHex
	if err := c.get(fmt.Sprintf("%s/reg/r/%s", c.ApiPrefix, board), &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// Fault sends request to raise an exception on a board
func (c *ApiClient) Fault(board string, request *control.FaultRequest) (*control.Report, error) {
	report := &control.Report{}
	if err := c.post(fmt.Sprintf("%s/fault/%s", c.ApiPrefix, board), request, report); err != nil {
		return nil, err
	}
	return report, nil
}

// LastFault sends request to get the last fault report of a board
func (c *ApiClient) LastFault(board string) (*control.Report, error) {
	report := &control.Report{}
	if err := c.get(fmt.Sprintf("%s/fault/%s", c.ApiPrefix, board), report); err != nil {
		return nil, err
	}
	return report, nil
}

// Tally sends request to get the machine check tally of a board
func (c *ApiClient) Tally(board string) (fault.Tally, error) {
	var tally fault.Tally
	err := c.get(fmt.Sprintf("%s/tally/%s", c.ApiPrefix, board), &tally)
	return tally, err
}

// Boards ...
func (c *ApiClient) Boards() ([]*control.BoardStatus, error) {
	var boards []*control.BoardStatus
	if err := c.get(fmt.Sprintf("%s/boards", c.ApiPrefix), &boards); err != nil {
		return nil, err
	}
	return boards, nil
}
