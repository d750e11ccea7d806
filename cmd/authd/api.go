package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sandpiper-dns/adns/config"
	"github.com/sandpiper-dns/adns/server"
)

// CommandPost is the /api/v1/command request body, the teacher's
// tdnsd/apihandler.go APIcommand shape reduced to the one subcommand this
// engine actually implements: stop.
type CommandPost struct {
	Command string `json:"command"`
}

// CommandResponse mirrors the teacher's CommandResponse envelope.
type CommandResponse struct {
	Time     time.Time `json:"time"`
	Error    bool      `json:"error"`
	ErrorMsg string    `json:"error_msg,omitempty"`
	Msg      string    `json:"msg,omitempty"`
}

// ZoneStatus is one entry of the /api/v1/zones listing.
type ZoneStatus struct {
	Apex   string `json:"apex"`
	Serial uint32 `json:"serial"`
	Signed bool   `json:"signed"`
}

func setupRouter(cfg *config.Config, proc *server.Processor) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", cfg.Apiserver.ApiKey).Subrouter()
	sr.HandleFunc("/ping", apiPing(cfg)).Methods("POST")
	sr.HandleFunc("/zones", apiZones(proc)).Methods("POST")
	sr.HandleFunc("/command", apiCommand(cfg)).Methods("POST")
	return r
}

func apiPing(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, CommandResponse{Time: time.Now(), Msg: "pong from " + cfg.Service.Name})
	}
}

// apiZones reports every published zone's apex, serial, and signed state
// by taking one Snapshot() of the database, spec.md §3's "readers pin the
// database version they observe" applied to the control plane's own view.
func apiZones(proc *server.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := proc.DB.Snapshot()
		zones := make([]ZoneStatus, 0, len(snap))
		for _, z := range snap {
			zones = append(zones, ZoneStatus{
				Apex:   z.Apex.String(),
				Serial: z.Serial,
				Signed: z.Signed,
			})
		}
		writeJSON(w, zones)
	}
}

func apiCommand(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cp CommandPost
		if err := json.NewDecoder(r.Body).Decode(&cp); err != nil {
			writeJSON(w, CommandResponse{Time: time.Now(), Error: true, ErrorMsg: err.Error()})
			return
		}

		resp := CommandResponse{Time: time.Now()}
		switch cp.Command {
		case "stop":
			resp.Msg = "stopping"
			select {
			case cfg.Internal.StopCh <- struct{}{}:
			default:
			}
		default:
			resp.Error = true
			resp.ErrorMsg = "unknown command: " + cp.Command
		}
		writeJSON(w, resp)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("authd: api: encode response: %v", err)
	}
}

// runAPIServer serves the control-plane HTTP API on every configured
// address, shut down when ctx is cancelled — the teacher's APIdispatcher
// has "unclear how to stop the http server nicely" written right into it;
// here http.Server.Shutdown gives the engine a real answer to that.
func runAPIServer(ctx context.Context, cfg *config.Config, proc *server.Processor) {
	if len(cfg.Apiserver.Addresses) == 0 {
		return
	}
	router := setupRouter(cfg, proc)

	var servers []*http.Server
	for _, addr := range cfg.Apiserver.Addresses {
		srv := &http.Server{Addr: addr, Handler: router}
		servers = append(servers, srv)
		go func(srv *http.Server, addr string) {
			log.Printf("authd: api listening on %s", addr)
			var err error
			if cfg.Apiserver.UseTLS {
				err = srv.ListenAndServeTLS(cfg.Apiserver.CertFile, cfg.Apiserver.KeyFile)
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && err != http.ErrServerClosed {
				log.Printf("authd: api %s: %v", addr, err)
			}
		}(srv, addr)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
}
