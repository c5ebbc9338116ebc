package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/opencasa/casa-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial connection attempt.
	connectTimeout = 10 * time.Second

	// publishTimeout bounds waiting for publish and subscribe acks.
	publishTimeout = 5 * time.Second

	// disconnectQuiesceMillis gives pending operations time to drain
	// before the connection drops.
	disconnectQuiesceMillis = 1000

	// keepAlive is the protocol-level ping interval.
	keepAlive = 60 * time.Second

	// maxQoS is the highest QoS level MQTT defines.
	maxQoS = 2
)

// buildClientOptions translates the service config into paho options:
// broker URL, credentials, clean session, auto-reconnect with backoff,
// and TLS 1.2+ when enabled.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Fresh session per connect; subscriptions are tracked client-side
	// and restored by the OnConnect handler.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	return opts
}
