package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/harness"
	"github.com/rohankatakam/codegraph/internal/ipc"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the resident cgraphd daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start cgraphd in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		binPath, err := daemonBinaryPath()
		if err != nil {
			return err
		}

		c := exec.Command(binPath)
		if cfgFile != "" {
			c.Args = append(c.Args, "--config", cfgFile)
		}
		c.Stdout = nil
		c.Stderr = nil
		if err := c.Start(); err != nil {
			return fmt.Errorf("start cgraphd: %w", err)
		}
		fmt.Printf("started cgraphd (pid %d)\n", c.Process.Pid)
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask the resident daemon to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControlMessage("shutdown")
	},
}

var daemonPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check whether a daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControlMessage("ping")
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonPingCmd)
}

func sendControlMessage(method string) error {
	req := ipc.NewRequest(method, nil)
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	h := harness.New(cfg.Paths.GraphFile, cfg.Paths.SocketFile)
	if h.Mode() != harness.ModeDaemon {
		return fmt.Errorf("no daemon reachable at %s", cfg.Paths.SocketFile)
	}

	resp, err := h.Call(payload)
	if err != nil {
		return err
	}
	fmt.Println(string(resp))
	return nil
}

// daemonBinaryPath looks for cgraphd next to the running cgraph binary.
func daemonBinaryPath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(filepath.Dir(execPath), "cgraphd")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("cgraphd binary not found next to %s", execPath)
}
