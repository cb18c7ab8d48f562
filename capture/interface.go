package capture

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/gopacket/pcap"

	"github.com/resonance-relay/sniffer/logging"
)

// FindGameInterface returns the name of the first non-loopback, non-virtual,
// non-link-local IPv4 interface pcap can open, for use as the capture
// device when the user hasn't pinned one explicitly.
func FindGameInterface() (string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return "", err
	}

	for _, dev := range devices {
		name := strings.ToLower(dev.Name + " " + dev.Description)
		if strings.Contains(name, "loopback") || strings.Contains(name, "virtual") || strings.Contains(name, "vethernet") {
			continue
		}

		for _, addr := range dev.Addresses {
			ip4 := addr.IP.To4()
			if ip4 == nil {
				continue
			}
			if ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			return dev.Name, nil
		}
	}

	return "", errNoInterface
}

var errNoInterface = netInterfaceError("no suitable non-loopback IPv4 capture interface found")

type netInterfaceError string

func (e netInterfaceError) Error() string { return string(e) }

// EnsureFirewallRule grants the current executable inbound access for the
// capture port. Failure is logged and non-fatal: the caller proceeds with
// capture regardless, since the rule may already exist or the platform may
// not need one.
func EnsureFirewallRule(exePath string, log logging.L) {
	if runtime.GOOS != "windows" {
		return
	}

	cmd := exec.Command("netsh",
		"advfirewall", "firewall", "add", "rule",
		"name=resonance-relay sniffer (inbound)",
		"dir=in",
		"action=allow",
		"program="+exePath,
		"enable=yes",
		"profile=any",
	)
	if err := cmd.Run(); err != nil {
		log.Warnf("failed to auto-configure firewall rule, inbound chat capture may be blocked: %v\n", err)
		return
	}
	log.Infoln("firewall rule configured for capture port")
}
