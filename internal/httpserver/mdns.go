package httpserver

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// mdnsService is the DNS-SD service type dashboards browse for.
const mdnsService = "_tokenledger._tcp"

// startMDNS registers a Bonjour/mDNS service so dashboards on the local
// network can discover this ledger.
//
// Registration is delegated to the system's dns-sd (macOS) or
// avahi-publish-service (Linux) so we never bind UDP 5353 ourselves.
// Returns a shutdown function that kills the registration process.
func startMDNS(port int, version string, log *zap.Logger) func() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "tokenledger"
	}
	txt := []string{
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("version=%s", version),
		fmt.Sprintf("host=%s.local", hostname),
	}

	if path, err := exec.LookPath("dns-sd"); err == nil {
		args := append([]string{"-R", hostname, mdnsService, "local", strconv.Itoa(port)}, txt...)
		return register(path, args, hostname, port, log)
	}
	if path, err := exec.LookPath("avahi-publish-service"); err == nil {
		args := append([]string{hostname, mdnsService, strconv.Itoa(port)}, txt...)
		return register(path, args, hostname, port, log)
	}

	log.Info("no dns-sd or avahi-publish-service found; skipping mDNS registration")
	return func() {}
}

func register(path string, args []string, hostname string, port int, log *zap.Logger) func() {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		log.Warn("mDNS registration failed", zap.String("tool", path), zap.Error(err))
		return func() {}
	}
	log.Info("mDNS registered",
		zap.String("service", hostname+"."+mdnsService+".local"),
		zap.Int("port", port),
		zap.Int("pid", cmd.Process.Pid))

	return func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	}
}
