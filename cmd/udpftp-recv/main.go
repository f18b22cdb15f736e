// Command udpftp-recv is the sink host of the transport protocol: it
// initiates a transfer against a running udpftp-send and writes the
// reconstructed byte stream to disk.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/udpftp/udpftp/config"
	"github.com/udpftp/udpftp/receiver"
)

func main() {
	os.Exit(run())
}

func run() int {
	variantFlag := flag.String("variant", "b", "variant to request, a or b")
	configPath := flag.String("config", "", "optional YAML config overlay")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	outputDir := flag.String("output-dir", ".", "directory to write {prefix}received_data.txt into")
	flag.Parse()

	log := newLogger(*logLevel)

	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <server-ip> <server-port> [<prefix>]\n", os.Args[0])
		return 1
	}
	serverIP := flag.Arg(0)
	serverPort, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		log.WithError(err).Error("invalid server port")
		return 1
	}
	prefix := ""
	if flag.NArg() >= 3 {
		prefix = flag.Arg(2)
	}

	request, err := parseRequestByte(*variantFlag)
	if err != nil {
		log.WithError(err).Error("invalid -variant")
		return 1
	}

	overlay, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("loading config")
		return 1
	}
	resolved := config.Apply(config.Defaults(), overlay)

	outputPath := filepath.Join(*outputDir, prefix+"received_data.txt")
	out, err := os.Create(outputPath)
	if err != nil {
		log.WithError(err).Error("creating output file")
		return 1
	}
	defer out.Close()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		log.WithError(err).Error("opening socket")
		return 1
	}
	defer conn.Close()

	peer := &net.UDPAddr{IP: net.ParseIP(serverIP), Port: serverPort}

	r := receiver.New(conn, peer, out, request, receiver.Config{IdleTimeout: resolved.IdleTimeout, Log: log})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		if _, ok := <-sigCh; ok {
			log.Warn("received interrupt, stopping")
			r.Stop()
		}
	}()

	runErr := r.Run()
	signal.Stop(sigCh)
	close(sigCh)

	if runErr != nil {
		log.WithError(runErr).Error("transfer failed")
		return 1
	}
	log.WithField("path", outputPath).Info("transfer complete")
	return 0
}

func parseRequestByte(s string) (receiver.RequestByte, error) {
	switch s {
	case "a":
		return receiver.RequestVariantA, nil
	case "b":
		return receiver.RequestVariantB, nil
	default:
		return 0, errors.Errorf("unknown variant %q", s)
	}
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
