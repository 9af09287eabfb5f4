package broker

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

var schemeRE = regexp.MustCompile(`^(?:http|mqtt|ws)s?://`)

// BrokerURL builds the connection URL for a probe. A hostname without a
// recognized scheme is treated as a bare MQTT host.
func BrokerURL(hostname string, port int, websocketPath string) string {
	if !schemeRE.MatchString(hostname) {
		hostname = "mqtt://" + hostname
	}
	u := hostname + ":" + strconv.Itoa(port)
	if isWebsocket(hostname) && websocketPath != "" {
		if !strings.HasPrefix(websocketPath, "/") {
			websocketPath = "/" + websocketPath
		}
		u += websocketPath
	}
	return u
}

func isWebsocket(u string) bool {
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://")
}

// timeoutFraction of the interval is spent waiting, so the verdict lands
// before the next scheduled probe.
const timeoutFraction = 0.8

// Timeout returns the wait budget for a probe with the given interval.
func Timeout(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = domain.DefaultInterval * time.Second
	}
	return time.Duration(float64(interval) * timeoutFraction)
}

const clientIDPrefix = "mqttprobe_"

// ClientID returns a fresh client identifier so overlapping probes never
// share a broker-side session. Kept under the 23 byte MQTT 3.1 limit.
func ClientID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return clientIDPrefix + strconv.FormatInt(time.Now().UnixNano()&0xffffffff, 16)
	}
	return clientIDPrefix + hex.EncodeToString(b)
}
