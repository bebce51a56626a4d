/**
 * Gridmonitor Engine Entry Point.
 *
 * Bootstraps persistent storage, the signature engine and its hot-reload
 * watcher, the vendor/geoip enrichers, and the command Surface the GUI
 * shell's IPC layer calls through. Supports --open <session-id> to restore
 * a session already saved in the session store on startup (it does not
 * open session archive or PCAP files) and --import-pcap <paths> to
 * bulk-import a comma-separated list of PCAP files before handing control
 * to the shell.
 */

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/kusanaginokajiki/gridmonitor/internal/command"
	"github.com/kusanaginokajiki/gridmonitor/internal/config"
	"github.com/kusanaginokajiki/gridmonitor/internal/enricher"
	"github.com/kusanaginokajiki/gridmonitor/internal/signature"
	"github.com/kusanaginokajiki/gridmonitor/internal/storage"
)

func main() {
	var openSession string
	var importPCAP string
	flag.StringVar(&openSession, "open", "", "session id to restore on startup")
	flag.StringVar(&importPCAP, "import-pcap", "", "comma-separated PCAP file paths to import on startup")
	flag.Parse()

	paths, err := config.DefaultPaths()
	if err != nil {
		log.Fatalf("failed to resolve application paths: %v", err)
	}

	settings, err := config.Load(paths.SettingsFile)
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	store, err := storage.NewSQLiteStorage(paths.DatabaseFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	sigs, loadErrs := signature.LoadDirectory(paths.SignaturesDir)
	for _, e := range loadErrs {
		log.Printf("warning: signature load: %v", e)
	}
	engine := signature.NewEngine(sigs)

	watcher, err := signature.NewWatcher(paths.SignaturesDir, engine)
	if err != nil {
		log.Printf("warning: signature hot-reload disabled: %v", err)
	} else {
		if err := watcher.Start(); err != nil {
			log.Printf("warning: signature hot-reload disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	vendor := enricher.NewVendorLookup()
	if err := vendor.LoadFile(paths.OUIDatabase); err != nil {
		log.Printf("vendor database not loaded, using built-in defaults: %v", err)
	}

	geo, err := enricher.NewGeoIPService(paths.GeoIPCityDB, "")
	if err != nil {
		log.Printf("geoip lookups disabled: %v", err)
		geo = nil
	} else {
		defer geo.Close()
	}

	surface := command.New(paths, settings, store, engine, vendor, geo)

	if openSession != "" {
		if _, err := surface.LoadSession(openSession); err != nil {
			log.Printf("warning: failed to restore session %q: %v", openSession, err)
		}
	}

	if importPCAP != "" {
		results, err := surface.ImportPCAP(strings.Split(importPCAP, ","))
		if err != nil {
			log.Printf("warning: pcap import failed: %v", err)
		}
		for _, r := range results {
			log.Printf("imported %s: %d packets (%s)", r.Path, r.PacketCount, r.Status)
		}
	}

	info, _ := surface.GetAppInfo()
	log.Printf("%s %s ready, listening for shell commands", info.Name, info.Version)

	select {}
}

func init() {
	if !isRoot() {
		log.Println("warning: live packet capture requires root/administrator privileges")
	}
}

func isRoot() bool {
	return os.Geteuid() == 0
}
