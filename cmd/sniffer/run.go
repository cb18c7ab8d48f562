package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/resonance-relay/sniffer/archive"
	"github.com/resonance-relay/sniffer/capture"
	"github.com/resonance-relay/sniffer/eventbus"
	"github.com/resonance-relay/sniffer/framer"
	"github.com/resonance-relay/sniffer/gid"
	"github.com/resonance-relay/sniffer/internal/config"
	"github.com/resonance-relay/sniffer/logging"
	"github.com/resonance-relay/sniffer/modelmgr"
	"github.com/resonance-relay/sniffer/protocol"
	"github.com/resonance-relay/sniffer/translator"
	"github.com/resonance-relay/sniffer/watchdog"
)

const (
	defaultGamePort  = 5003
	uiQueueCapacity  = 256
	serverFolderName = "llama-server"
	serverBinaryName = "llama-server.exe"
)

var (
	interfaceFlag   string
	portFlag        uint16
	noTranslateFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture game chat traffic and translate it until interrupted.",
	RunE:  runSniffer,
}

func init() {
	runCmd.Flags().StringVarP(&interfaceFlag, "interface", "i", "", "capture device name (default: auto-discover)")
	runCmd.Flags().Uint16Var(&portFlag, "port", defaultGamePort, "game TCP port to filter capture on")
	runCmd.Flags().BoolVar(&noTranslateFlag, "no-translate", false, "disable the translation worker even if the model is present")
	runCmd.Flags().StringVar(&modelURLFlag, "model-url", defaultModelURL, "URL the model file is downloaded from")
	runCmd.Flags().StringVar(&modelFilenameFlag, "model-filename", defaultModelFilename, "filename the model is stored under in <app-data>/models")
}

func runSniffer(cmd *cobra.Command, _ []string) error {
	log := logging.Stderr

	appDataDir, err := resolveAppDataDir()
	if err != nil {
		return err
	}

	store, err := config.Load(appDataDir)
	if err != nil {
		return err
	}
	settings := store.Settings()
	if settings.IsDebug {
		viper.Set("is_debug", true)
	}

	device := interfaceFlag
	if device == "" {
		device, err = capture.FindGameInterface()
		if err != nil {
			return err
		}
		log.Infof("auto-discovered capture interface: %s\n", device)
	}

	if exePath, exeErr := os.Executable(); exeErr == nil {
		capture.EnsureFirewallRule(exePath, log)
	}

	runID := gid.GenerateRunID()
	log.Infof("starting capture run %s on %s\n", runID, device)

	state := watchdog.NewState(func(key string) {
		emitLine("remove-entity", key)
	})
	myGeneration := state.Bump()

	archiveWriter, err := archive.NewWriter(appDataDir, log)
	if err != nil {
		return err
	}
	defer archiveWriter.Close()

	modelStatus := modelmgr.New(appDataDir, modelURLFlag, modelFilenameFlag).CheckStatus()
	translatorEnabled := !noTranslateFlag && modelStatus.Exists
	if !translatorEnabled {
		log.Warnln("translation model not found; running capture-only, chat will be emitted untranslated")
	}

	bus := eventbus.NewBus(uiQueueCapacity, translatorEnabled)
	reassembler := framer.NewReassembler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	if translatorEnabled {
		worker := translator.NewWorker(translator.Config{
			BinaryPath: translator.ResolveBinaryPath(appDataDir, serverFolderName, serverBinaryName),
			ModelPath:  modelStatus.Path,
			GPULayers:  config.GPULayers(settings),
		}, bus, archiveWriter, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if werr := worker.Run(ctx); werr != nil {
				log.Errorf("translator worker exited: %v\n", werr)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchdog.Run(ctx, state, myGeneration, func(status string) {
			emitLine("sniffer-status", status)
		})
	}()

	engineCfg := capture.NewConfig(device, portFlag)
	engine := capture.NewEngine(engineCfg, log)
	payloads, err := engine.Run(ctx, state.Touch)
	if err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		decodeLoop(payloads, reassembler, state, bus, log)
	}()

	emitLine("sniffer-status", "running")
	log.Infoln("sniffer running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infoln("shutting down...")
	cancel()
	wg.Wait()
	return nil
}

// decodeLoop drains captured payloads through the reassembler and two-stage
// decoder, publishing each deduplicated event to the bus and to stdout.
func decodeLoop(payloads <-chan capture.Payload, reassembler *framer.Reassembler, state *watchdog.State, bus *eventbus.Bus, log logging.L) {
	for payload := range payloads {
		for _, frame := range reassembler.Push(payload.Flow, payload.Data) {
			split, ok := protocol.Stage1Split(frame.Data, state.Fields(), log)
			if !ok {
				continue
			}
			for _, ev := range protocol.Stage2Process(split) {
				if !state.Gate().Pass(ev) {
					continue
				}
				bus.Publish(ev)
				publishEvent(ev)
			}
		}
	}
}

func publishEvent(ev protocol.Event) {
	switch {
	case ev.Chat != nil:
		emitLine("packet-event", ev.Chat)
	case ev.Recruit != nil:
		emitLine("lobby-update", ev.Recruit)
	case ev.Asset != nil:
		emitLine("profile-asset-update", ev.Asset)
	}
}

// emitLine writes one JSON object to stdout tagging data with its outbound
// event name, standing in for the out-of-scope UI bridge layer.
func emitLine(event string, data interface{}) {
	body, err := json.Marshal(struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data"`
	}{Event: event, Data: data})
	if err != nil {
		return
	}
	fmt.Println(string(body))
}
