package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"

	"github.com/hubertat/fankit/entity"
)

const httpTimeoutsMs = 3000

// Server exposes fans over a small JSON API:
//
//	GET  /fans      all fan states
//	GET  /fans/:id  one fan state
//	POST /fans/:id  apply a command, responds with the new state
type Server struct {
	Addr string

	fans   []entity.Entity
	server *http.Server
	logger *log.Logger
}

func NewServer(addr string, fans []entity.Entity) *Server {
	return &Server{
		Addr: addr,
		fans: fans,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "Api: ",
			Level:  log.GetLevel(),
		}),
	}
}

func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/fans", s.handleList)
	router.GET("/fans/:id", s.handleGet)
	router.POST("/fans/:id", s.handleCommand)
	return router
}

// ListenAndServe blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	httpTimeout := httpTimeoutsMs * time.Millisecond

	s.server = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	s.logger.Info("listening", "addr", s.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *Server) findFan(id string) entity.Entity {
	for _, fan := range s.fans {
		if strings.EqualFold(fan.UniqueId(), id) {
			return fan
		}
	}
	return nil
}

func (s *Server) writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	states := []entity.State{}
	for _, fan := range s.fans {
		states = append(states, fan.State())
	}
	s.writeJson(w, http.StatusOK, states)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	fan := s.findFan(p.ByName("id"))
	if fan == nil {
		http.Error(w, "fan not found", http.StatusNotFound)
		return
	}
	s.writeJson(w, http.StatusOK, fan.State())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	fan := s.findFan(p.ByName("id"))
	if fan == nil {
		http.Error(w, "fan not found", http.StatusNotFound)
		return
	}

	cmd := entity.Command{}
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(&cmd)
	if err != nil {
		http.Error(w, "failed to decode command: "+err.Error(), http.StatusBadRequest)
		return
	}

	err = entity.Apply(fan, cmd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Debug("command applied", "fan", fan.UniqueId())
	s.writeJson(w, http.StatusOK, fan.State())
}
