// Package mqttpub optionally exports decoded advertisements to an MQTT
// broker, supplementing the WebSocket broadcaster with a machine-to-machine
// sink in the teacher's metrics-publish idiom.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/madpsy/blesdr/ble"
)

// Config configures the MQTT publisher.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
}

// advertisementPayload is the JSON body published for each decoded
// advertisement.
type advertisementPayload struct {
	Timestamp  int64  `json:"timestamp"`
	FreqMHz    int    `json:"freq_mhz"`
	AccessAddr uint32 `json:"access_address"`
	PDUType    string `json:"pdu_type,omitempty"`
	Address    string `json:"address,omitempty"`
}

// Publisher publishes decoded advertisements to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	cfg    Config
}

func generateClientID() string {
	return "blesdr_" + uuid.NewString()
}

// New connects to the configured broker and returns a ready Publisher.
func New(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateClientID())

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("mqttpub: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqttpub: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttpub: connecting to %s: %w", cfg.Broker, token.Error())
	}

	return &Publisher{client: client, cfg: cfg}, nil
}

// topicFor builds the publish topic for one advertisement's source
// channel.
func topicFor(prefix string, freqMHz int) string {
	return fmt.Sprintf("%s/advertisement/%d", prefix, freqMHz)
}

// buildPayload converts a decoded advertisement into its wire JSON. It is
// separated from Publish so the encoding can be unit-tested without a live
// broker connection.
func buildPayload(pkt *ble.Bluetooth, now time.Time) ([]byte, error) {
	payload := advertisementPayload{
		Timestamp:  now.Unix(),
		FreqMHz:    pkt.FreqMHz,
		AccessAddr: pkt.AccessAddr,
		PDUType:    pkt.Advertisement.PDUType.String(),
		Address:    pkt.Advertisement.Address.String(),
	}
	return json.Marshal(payload)
}

// Publish sends one decoded advertisement; non-advertising (unimplemented
// access address) packets are not published, matching §7's framing of the
// BLE sink as advertisement-oriented.
func (p *Publisher) Publish(pkt *ble.Bluetooth) error {
	if pkt.Advertisement == nil {
		return nil
	}

	data, err := buildPayload(pkt, time.Now())
	if err != nil {
		return fmt.Errorf("mqttpub: marshal: %w", err)
	}

	token := p.client.Publish(topicFor(p.cfg.TopicPrefix, pkt.FreqMHz), p.cfg.QoS, p.cfg.Retain, data)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker, waiting up to 250ms to flush.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
