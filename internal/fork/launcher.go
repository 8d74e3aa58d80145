package fork

import (
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// anvilArgs builds the command line of a local anvil node forking upstream at block.
func anvilArgs(upstream string, block uint64, gasLimit uint64, port int) []string {
	return []string{
		"--fork-url", upstream,
		"--fork-block-number", strconv.FormatUint(block, 10),
		"--gas-limit", strconv.FormatUint(gasLimit, 10),
		"--port", strconv.Itoa(port),
		"--silent",
	}
}

// launchAnvil starts anvil and returns the running process and its RPC URL.
// The caller owns the process and must stop it.
func launchAnvil(path string, upstream string, block uint64, gasLimit uint64, port int, logger *zap.Logger) (*exec.Cmd, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("anvil path is required")
	}
	if port <= 0 {
		return nil, "", fmt.Errorf("anvil port must be positive")
	}

	cmd := exec.Command(path, anvilArgs(upstream, block, gasLimit, port)...)
	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("start anvil: %w", err)
	}
	logger.Info("anvil started",
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("port", port),
		zap.Uint64("fork_block", block),
	)
	return cmd, fmt.Sprintf("http://127.0.0.1:%d", port), nil
}

func stopProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill anvil: %w", err)
	}
	_ = cmd.Wait()
	return nil
}
