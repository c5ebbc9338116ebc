// Package mqtt provides MQTT client connectivity for casacore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the message bus connecting the server to the installed device
// fleet: wall bases publish button events, lamp controllers confirm state,
// and the server publishes commands. The broker decouples the server from
// the firmware.
//
//	ESP devices ↔ MQTT Broker ↔ casacore server
//
// Topic names come from configuration (see config.MQTTTopicsConfig); the
// Topics builder type gives each a named accessor so callers never format
// topic strings by hand.
//
// # Security Considerations
//
//   - TLS is available for remote brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to button events from wall bases
//	err = client.Subscribe(client.Topics().ButtonEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a lamp command
//	client.Publish(client.Topics().LampCommand(), []byte(`{"device":"L_Sala","command":"toggle"}`), 1, false)
package mqtt
