package translator

import (
	"context"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/resonance-relay/sniffer/logging"
)

const (
	listenPort         = 8080
	inferenceContext   = "512"
	inferenceBatch     = "16"
	inferenceMicroBat  = "16"
	inferenceThreads   = "4"
	inferenceParallel  = "1"
	healthPollInterval = time.Second
	healthPollTimeout  = 30 * time.Second
)

// ErrHealthTimeout is returned when the inference child doesn't report
// healthy within healthPollTimeout.
var ErrHealthTimeout = errors.New("inference child did not become healthy in time")

// spawnServer launches the inference child with the fixed low-resource flag
// set described by the translator spec: a tiny context window and batch
// sizes tuned so the child doesn't starve the game client it shares a
// machine with, continuous batching with a single parallel slot, and no
// memory-mapping or locking.
func spawnServer(binaryPath, modelPath string, gpuLayers int, log logging.L) (*serverGuard, error) {
	cmd := exec.Command(binaryPath,
		"-m", modelPath,
		"--port", strconv.Itoa(listenPort),
		"--log-disable",
		"-ngl", strconv.Itoa(gpuLayers),
		"-c", inferenceContext,
		"-b", inferenceBatch,
		"-ub", inferenceMicroBat,
		"-t", inferenceThreads,
		"--parallel", inferenceParallel,
		"--cont-batching",
		"--no-mmap",
	)

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start inference child")
	}

	return &serverGuard{cmd: cmd, log: log}, nil
}

// waitForHealth polls GET /health at 1 Hz until it returns 200 or
// healthPollTimeout elapses.
func waitForHealth(ctx context.Context, client *retryablehttp.Client, log logging.L) error {
	deadline := time.Now().Add(healthPollTimeout)
	url := baseURL + "/health"

	for {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err == nil {
			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
		}

		if time.Now().After(deadline) {
			return ErrHealthTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
}
