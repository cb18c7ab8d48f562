package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonance-relay/sniffer/logging"
	"github.com/resonance-relay/sniffer/modelmgr"
)

var modelURLFlag string
var modelFilenameFlag string
var modelForceFlag bool

const defaultModelURL = "https://huggingface.co/lm-kit/qwen-3-0.6b-instruct-gguf/resolve/main/Qwen3-0.6B-Q4_K_M.gguf"
const defaultModelFilename = "Qwen3-0.6B-Q4_K_M.gguf"

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect or download the local translation model file.",
}

var modelStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the model file is present.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		appDataDir, err := resolveAppDataDir()
		if err != nil {
			return err
		}
		mgr := modelmgr.New(appDataDir, modelURLFlag, modelFilenameFlag)
		status := mgr.CheckStatus()
		fmt.Printf("exists=%t path=%s\n", status.Exists, status.Path)
		return nil
	},
}

var modelDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the model file, reporting whole-percent progress.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		appDataDir, err := resolveAppDataDir()
		if err != nil {
			return err
		}
		mgr := modelmgr.New(appDataDir, modelURLFlag, modelFilenameFlag)
		logging.Infoln("downloading model to", mgr.Path())
		return mgr.Download(context.Background(), modelForceFlag, func(p modelmgr.Progress) {
			emitLine("download-progress", struct {
				CurrentFile  string `json:"current_file"`
				Percent      uint8  `json:"percent"`
				TotalPercent uint8  `json:"total_percent"`
			}{CurrentFile: modelFilenameFlag, Percent: p.Percent, TotalPercent: p.Percent})
		})
	},
}

func init() {
	modelCmd.PersistentFlags().StringVar(&modelURLFlag, "model-url", defaultModelURL, "URL the model file is downloaded from")
	modelCmd.PersistentFlags().StringVar(&modelFilenameFlag, "model-filename", defaultModelFilename, "filename the model is stored under in <app-data>/models")
	modelDownloadCmd.Flags().BoolVar(&modelForceFlag, "force", false, "overwrite an already-downloaded model file")

	modelCmd.AddCommand(modelStatusCmd)
	modelCmd.AddCommand(modelDownloadCmd)
}
