// Command isonmd is a demo/reference binary wiring a NetworkManager to
// the mockhw loopback hardware, one Internal control function racing
// address claiming, and the isotp reference transport protocol. It
// exists to give every core package a runnable home, the same role
// the teacher's own cmd/main.go plays for package tp.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vaelix/isonm/addrclaim"
	"github.com/vaelix/isonm/callback"
	"github.com/vaelix/isonm/canhw/mockhw"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/isoconfig"
	"github.com/vaelix/isonm/isolog"
	"github.com/vaelix/isonm/isometrics"
	"github.com/vaelix/isonm/isotp"
	"github.com/vaelix/isonm/name"
	"github.com/vaelix/isonm/netmgr"
	"github.com/vaelix/isonm/rxqueue"
)

var cfgFile string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "isonmd",
		Short: "Run a demo ISO 11783 network manager over loopback hardware",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML/TOML/JSON config file")
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var ticks int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim an address and exchange a few frames on loopback hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := isoconfig.Load(cfgFile)
			if err != nil {
				return err
			}
			return run(cfg, ticks)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 200, "number of Update ticks to run before exiting")
	return cmd
}

func run(cfg isoconfig.Config, ticks int) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	hw := mockhw.New()
	hw.Start()
	clock := mockhw.NewClock()
	mets := isometrics.New()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Errorf("metrics listener on %s stopped: %v", cfg.MetricsAddr, err)
			}
		}()
	}

	nm := netmgr.New(hw, clock,
		netmgr.WithLogger(log),
		netmgr.WithMetrics(mets),
		netmgr.WithQueueBound(cfg.MaxQueueDepth, rxqueue.DropNewest),
	)

	n := name.New(name.Fields{
		IdentityNumber:   1,
		ManufacturerCode: 1407,
		Function:         129,
		DeviceClass:      0,
		IndustryGroup:    2,
		SelfConfigurable: true,
	})
	internal := nm.RegisterInternal(n, 0, cfg.PreferredAddress)

	partner := nm.RegisterPartner(0, cf.FilterFunction(129))

	tp := isotp.New(nm, hw, clock, isotp.DefaultConfig(), func(pgn uint32, payload []byte, source *cf.ControlFunction, port uint8) {
		log.Infof("reassembled %d bytes for PGN %#x from %v on port %d", len(payload), pgn, source, port)
	}, 0xEF00)
	nm.RegisterProtocol(tp)

	nm.AddGlobalCallback(netmgr.RequestPGN, func(msg callback.Message, _ any) {
		log.Debugf("request PGN %#x seen on port %d", msg.PGN(), msg.Port())
	}, nil, partner)

	ticker := time.NewTicker(cfg.UpdateInterval)
	defer ticker.Stop()
	for i := 0; i < ticks; i++ {
		nm.Update()
		clock.Advance(cfg.UpdateInterval.Milliseconds())
		if i == 50 && internal.Claim.(*addrclaim.StateMachine).Unclaimable() {
			log.Warnf("internal CF failed to claim an address")
		}
		<-ticker.C
	}

	log.Infof("final address: %d", internal.Address())
	return nil
}

func newLogger(cfg isoconfig.Config) (isolog.Logger, error) {
	if cfg.LogDir == "" {
		return isolog.NewZap()
	}
	log, _, err := isolog.NewRotatingFile(cfg.LogDir, "isonmd", time.Hour)
	return log, err
}
