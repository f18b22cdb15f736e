// Command udpftp-send is the source host of the transport protocol: it
// binds a UDP socket, waits for a client's request octet matching the
// variant selected by -variant, and streams the input file under that
// variant.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/udpftp/udpftp/config"
	"github.com/udpftp/udpftp/metrics"
	"github.com/udpftp/udpftp/sender"
	"github.com/udpftp/udpftp/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	variantFlag := flag.String("variant", "b", "variant this sender serves, a or b")
	configPath := flag.String("config", "", "optional YAML config overlay")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	inputPath := flag.String("input", "data.txt", "file to send")
	flag.Parse()

	log := newLogger(*logLevel)

	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <server-ip> <server-port> [<sws-bytes>]\n", os.Args[0])
		return 1
	}
	serverIP := flag.Arg(0)
	serverPort, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		log.WithError(err).Error("invalid server port")
		return 1
	}

	variant, err := parseRequestVariant(*variantFlag)
	if err != nil {
		log.WithError(err).Error("invalid -variant")
		return 1
	}

	overlay, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("loading config")
		return 1
	}
	defaults := config.Defaults()
	defaults.RTOMin, defaults.RTOMax = config.RTOBoundsForVariant(variant)
	resolved := config.Apply(defaults, overlay)
	applyFlagOverrides(&resolved, *metricsAddr)

	// A third positional argument gives the fixed SWS for variant A; it is
	// meaningless for variant B, where the window is derived from cwnd
	if variant == sender.VariantA && flag.NArg() >= 3 {
		sws, err := strconv.Atoi(flag.Arg(2))
		if err != nil {
			log.WithError(err).Error("invalid sws-bytes")
			return 1
		}
		resolved.SWS = sws
	}

	file, err := os.Open(*inputPath)
	if err != nil {
		log.WithError(err).Error("opening input file")
		return 1
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.WithError(err).Error("statting input file")
		return 1
	}
	fileSize := uint32(info.Size())

	addr := &net.UDPAddr{IP: net.ParseIP(serverIP), Port: serverPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.WithError(err).Error("binding socket")
		return 1
	}
	defer conn.Close()

	log.WithField("addr", addr.String()).Info("waiting for request")
	peer, err := awaitRequest(conn, variant)
	if err != nil {
		log.WithError(err).Error("awaiting client request")
		return 1
	}
	log.WithFields(logrus.Fields{"peer": peer.String(), "variant": variant}).Info("request accepted")

	cfg := sender.Config{
		Variant: variant,
		SWS:     uint32(resolved.SWS),
		RTOMin:  resolved.RTOMin,
		RTOMax:  resolved.RTOMax,
		RTOInit: resolved.RTOInit,
		Log:     log,
	}
	s := sender.New(conn, peer, file, fileSize, cfg)

	if resolved.MetricsAddr != "" {
		startMetricsServer(resolved.MetricsAddr, s, log)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		if _, ok := <-sigCh; ok {
			log.Warn("received interrupt, stopping")
			s.Stop()
		}
	}()

	serveErr := s.Serve()
	signal.Stop(sigCh)
	close(sigCh)

	if serveErr != nil {
		log.WithError(serveErr).Error("transfer failed")
		return 1
	}
	if !s.Snapshot().Done {
		log.Warn("stopped before completion")
		return 1
	}
	log.Info("transfer complete")
	return 0
}

// awaitRequest blocks until a single-octet request datagram matching the
// expected variant arrives, returning the sending address. Requests for the
// other variant are discarded like any other packet-level anomaly.
func awaitRequest(conn *net.UDPConn, expected sender.Variant) (*net.UDPAddr, error) {
	want := byte('R')
	if expected == sender.VariantA {
		want = '1'
	}

	buf := make([]byte, wire.MaxDatagram)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nil, errors.Wrap(err, "udpftp: reading request")
		}
		if n == 1 && buf[0] == want {
			return addr, nil
		}
	}
}

func parseRequestVariant(s string) (sender.Variant, error) {
	switch s {
	case "a":
		return sender.VariantA, nil
	case "b":
		return sender.VariantB, nil
	default:
		return 0, errors.Errorf("unknown variant %q", s)
	}
}

func applyFlagOverrides(r *config.Resolved, metricsAddr string) {
	if metricsAddr != "" {
		r.MetricsAddr = metricsAddr
	}
}

func startMetricsServer(addr string, s *sender.Sender, log *logrus.Entry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewSenderCollector(s))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("metrics enabled")
}

func newLogger(level string) *logrus.Entry {
	l := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return logrus.NewEntry(l)
}
