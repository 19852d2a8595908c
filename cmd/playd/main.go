// ABOUTME: Entry point for playd
// ABOUTME: Parses CLI flags, builds the Player and reactor, and runs until shutdown
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/resonate-protocol/playd/internal/audiosink"
	"github.com/resonate-protocol/playd/internal/audiosource"
	"github.com/resonate-protocol/playd/internal/devices"
	"github.com/resonate-protocol/playd/internal/discovery"
	"github.com/resonate-protocol/playd/internal/ioreactor"
	"github.com/resonate-protocol/playd/internal/player"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 1350
)

var (
	device  = flag.Int("device", -1, "output device ID (see usage for valid IDs)")
	host    = flag.String("host", defaultHost, "host/IP to bind the control port on")
	port    = flag.Int("port", defaultPort, "TCP port to bind the control port on")
	logFile = flag.String("log-file", "playd.log", "log file path")
	noMDNS  = flag.Bool("no-mdns", false, "disable mDNS advertisement of the control port")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	if !devices.IsValid(*device) {
		exitWithUsage()
	}

	runID := uuid.NewString()
	log.Printf("playd: starting run %s, device %d, listening on %s:%d", runID, *device, *host, *port)

	p := player.New(*device, audiosource.Default(), audiosink.Build)
	reactor := ioreactor.New(p)

	var advertiser *discovery.Advertiser
	if !*noMDNS {
		advertiser, err = discovery.Advertise(discovery.Config{Port: *port})
		if err != nil {
			log.Printf("playd: mDNS advertisement disabled: %v", err)
		}
	}
	if advertiser != nil {
		defer advertiser.Stop()
	}

	if err := reactor.Run(*host, *port); err != nil {
		log.Fatalf("playd: %v", err)
	}

	log.Printf("playd: run %s stopped", runID)
}

func exitWithUsage() {
	fmt.Fprintf(os.Stderr, "usage: %s -device ID [-host HOST] [-port PORT]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "where ID is one of the following numbers:")
	for _, d := range devices.List() {
		fmt.Fprintf(os.Stderr, "\t%d: %s\n", d.ID, d.Name)
	}
	fmt.Fprintf(os.Stderr, "default host: %s\n", defaultHost)
	fmt.Fprintf(os.Stderr, "default port: %d\n", defaultPort)
	os.Exit(1)
}
