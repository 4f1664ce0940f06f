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

// go-spl API
//
// # RESTful APIs to boot boards and raise exceptions on them
//
// Schemes: http
// Host: localhost:8000
// BasePath: /api
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package control

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/log"
	"jinr.ru/greenlab/go-spl/pkg/srv/control/ifc"
)

//go:embed swagger.json
var swaggerJSON []byte

// Document returns the analyzed API document
func Document() (*loads.Document, error) {
	return loads.Analyzed(json.RawMessage(swaggerJSON), "")
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	ctrl *ControlServer
	doc  *loads.Document
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(ctx context.Context, cfg *config.Config, ctrl *ControlServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())
	doc, err := Document()
	if err != nil {
		return nil, err
	}
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		ctrl:    ctrl,
		doc:     doc,
	}
	s.configureRouter()
	return s, nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("%s", fmt.Sprint(v...))
}

// Handler returns the router wrapped with access logging and panic
// recovery
func (s *ApiServer) Handler() http.Handler {
	logged := handlers.LoggingHandler(log.Writer(log.InfoLevel), s.Router)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(logged)
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.Config.ApiAddr())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.ApiAddr(),
	}
	go func() {
		<-s.Context.Done()
		httpServer.Close()
	}()
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return s.Context.Err()
	}
	return err
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/boards", s.handleBoards()).Methods("GET")
	subRouter.HandleFunc("/boot/{board}", s.handleBoot()).Methods("POST")
	subRouter.HandleFunc("/reg/r/{board}/{addr:0x[0-9a-fA-F]{1,8}}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/reg/r/{board}", s.handleRegReadAll()).Methods("GET")
	subRouter.HandleFunc("/fault/{board}", s.handleFault()).Methods("POST")
	subRouter.HandleFunc("/fault/{board}", s.handleLastFault()).Methods("GET")
	subRouter.HandleFunc("/tally/{board}", s.handleTally()).Methods("GET")
	s.Router.HandleFunc("/swagger.json", s.handleSwagger()).Methods("GET")
	s.Router.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/swagger.json",
		Title:   s.doc.Spec().Info.Title,
	}, http.NotFoundHandler()))
}

func statusFor(err error) int {
	var (
		boardNotFound config.ErrBoardNotFound
		keyNotFound   ErrKeyNotFound
		notBooted     ErrNotBooted
	)
	switch {
	case errors.As(err, &boardNotFound), errors.As(err, &keyNotFound):
		return http.StatusNotFound
	case errors.As(err, &notBooted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.doc.Raw())
	}
}

func (s *ApiServer) handleBoards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.ctrl.Boards())
	}
}

func (s *ApiServer) handleBoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		req := &BootRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil && err != io.EOF {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling boot request: board: %s, boot info: %s", vars["board"], req.BootInfo)

		if _, err := ParseHex32(req.BootInfo); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := SimOptions(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := s.ctrl.Boot(vars["board"], req)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, result)
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: board: %s, addr: %s", vars["board"], vars["addr"])

		addr, err := strconv.ParseUint(vars["addr"], 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reg, err := s.ctrl.RegRead(uint32(addr), vars["board"])
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, NewRegHex(*reg))
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read all request: board: %s", vars["board"])

		regs, err := s.ctrl.RegReadAll(vars["board"])
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		regsHex := []*RegHex{}
		for _, reg := range regs {
			regsHex = append(regsHex, NewRegHex(reg))
		}
		writeJSON(w, regsHex)
	}
}

func (s *ApiServer) handleFault() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		req := &FaultRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling fault request: board: %s vector: %s nip: %s", vars["board"], req.Vector, req.NIP)

		if _, err := req.Record(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, _, err := req.Syndrome(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		report, err := s.ctrl.Fault(vars["board"], req)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, report)
	}
}

func (s *ApiServer) handleLastFault() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		report, err := s.ctrl.LastFault(vars["board"])
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, report)
	}
}

func (s *ApiServer) handleTally() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		tally, err := s.ctrl.Tally(vars["board"])
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, tally)
	}
}
