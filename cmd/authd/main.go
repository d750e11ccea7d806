package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/sandpiper-dns/adns/config"
	"github.com/sandpiper-dns/adns/rrl"
	"github.com/sandpiper-dns/adns/server"
	"github.com/sandpiper-dns/adns/tsig"
	"github.com/sandpiper-dns/adns/zone"
)

var appVersion = "dev"

func main() {
	var cfgfile string
	var debug, verbose bool
	pflag.StringVarP(&cfgfile, "config", "c", "/etc/sandpiper/authd.yaml", "config file path")
	pflag.BoolVarP(&debug, "debug", "d", false, "debug output")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pflag.Parse()

	cfg, err := config.Load(cfgfile)
	if err != nil {
		log.Fatalf("authd: %v", err)
	}
	cfg.Service.Debug = cfg.Service.Debug || debug
	cfg.Service.Verbose = cfg.Service.Verbose || verbose
	cfg.App = config.AppDetails{Name: "authd", Version: appVersion}

	setupLogging(cfg.Log)
	log.Printf("authd %s starting, config %s", appVersion, cfgfile)

	proc, err := buildProcessor(cfg)
	if err != nil {
		log.Fatalf("authd: %v", err)
	}

	cfg.Internal.StopCh = make(chan struct{}, 1)
	cfg.Internal.RefreshZoneCh = make(chan string, 10)
	cfg.Internal.BumpZoneCh = make(chan string, 10)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runDNSEngine(ctx, cfg.DnsEngine, proc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runAPIServer(ctx, cfg, proc)
	}()

	mainloop(cancel, cfg)
	wg.Wait()
}

// buildProcessor assembles a server.Processor from the parsed configuration:
// one zone.Database loaded with every configured zone's initial contents, a
// tsig.KeyStore, an rrl.RRL, and per-zone ZonePolicy ACLs.
func buildProcessor(cfg *config.Config) (*server.Processor, error) {
	db := zone.NewDatabase()
	policies := make(map[string]*server.ZonePolicy, len(cfg.Zones))

	for name, zc := range cfg.Zones {
		z, err := config.BuildZone(zc)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", name, err)
		}
		db.Publish(z)

		policy, err := config.BuildPolicy(zc)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", name, err)
		}
		policies[z.Apex.CanonicalKey()] = policy
	}

	keys, err := config.BuildKeyStore(cfg.TsigKeys)
	if err != nil {
		return nil, err
	}

	limiter := rrl.New(config.BuildRRLConfig(cfg.RateLimit))

	proc := server.NewProcessor(db, keys, limiter)
	proc.Policies = policies
	proc.Identity = server.Identity{Version: appVersion, ID: cfg.Service.Name}
	if cfg.DnsEngine.MaxUDPPayload != 0 {
		proc.ServerMaxUDPPayload = int(cfg.DnsEngine.MaxUDPPayload)
	}
	if cfg.DnsEngine.TSIGFudge != 0 {
		proc.TSIGFudge = cfg.DnsEngine.TSIGFudge
	}
	if cfg.DnsEngine.MaxCNAMEChain != 0 {
		proc.MaxCNAMEChain = cfg.DnsEngine.MaxCNAMEChain
	}
	return proc, nil
}

// mainloop is the signal dispatcher: SIGINT/SIGTERM and a stop command both
// trigger shutdown, SIGHUP forces a config reload, grounded on the
// teacher's tdnsd/main.go mainloop (signal.Notify + sync.WaitGroup).
func mainloop(cancel context.CancelFunc, cfg *config.Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	hupper := make(chan os.Signal, 1)
	signal.Notify(hupper, syscall.SIGHUP)

	for {
		select {
		case <-exit:
			log.Println("authd: exit signal received, shutting down")
			cancel()
			return
		case <-cfg.Internal.StopCh:
			log.Println("authd: stop command received, shutting down")
			cancel()
			return
		case <-hupper:
			log.Println("authd: SIGHUP received, reloading config")
			if err := cfg.Reload(); err != nil {
				log.Printf("authd: reload failed: %v", err)
			}
		}
	}
}
