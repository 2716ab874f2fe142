// Command blesdr wires the BLE receive pipeline together: configuration,
// device realisation, the channeliser/stream facade, and the ambient
// metrics/WebSocket/MQTT sinks.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madpsy/blesdr/channelizer"
	"github.com/madpsy/blesdr/config"
	"github.com/madpsy/blesdr/metrics"
	"github.com/madpsy/blesdr/mqttpub"
	"github.com/madpsy/blesdr/stream"
	"github.com/madpsy/blesdr/wsbroadcast"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	listen := flag.String("listen", ":8089", "HTTP listen address for /metrics and /ws")
	mqttBroker := flag.String("mqtt-broker", "", "MQTT broker URL; empty disables MQTT export")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("blesdr: loading configuration: %v", err)
	}

	dev, err := cfg.Realize()
	if err != nil {
		log.Fatalf("blesdr: realizing device: %v", err)
	}

	rx, err := dev.RXStream(nil, nil)
	if err != nil {
		log.Fatalf("blesdr: opening RX stream: %v", err)
	}
	if err := rx.Activate(); err != nil {
		log.Fatalf("blesdr: activating RX stream: %v", err)
	}

	bank, err := channelizer.NewFilterBank(cfg.Pipeline.NumChannels, cfg.Pipeline.TapsPerArm, 0)
	if err != nil {
		log.Fatalf("blesdr: building filter bank: %v", err)
	}
	chz := channelizer.NewChannelizer(bank)

	m := metrics.New()
	facade := stream.NewFacade(rx, chz, cfg.Device.CenterFreqMHz, cfg.SampleRateHz(), m)

	broadcaster := wsbroadcast.New()

	var mqttPublisher *mqttpub.Publisher
	if *mqttBroker != "" {
		mqttPublisher, err = mqttpub.New(mqttpub.Config{Broker: *mqttBroker, TopicPrefix: "blesdr"})
		if err != nil {
			log.Fatalf("blesdr: connecting to MQTT broker: %v", err)
		}
		defer mqttPublisher.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", broadcaster)

	server := &http.Server{Addr: *listen, Handler: mux}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("blesdr: shutting down")
		facade.Stop()
		if err := server.Close(); err != nil {
			log.Printf("blesdr: error closing HTTP server: %v", err)
		}
	}()

	go func() {
		log.Printf("blesdr: listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("blesdr: HTTP server error: %v", err)
		}
	}()

	next := facade.StartRXWithError()
	for {
		result, ok := next()
		if !ok {
			break
		}
		broadcaster.Publish(result)
		if result.Kind == stream.ResultPacket && mqttPublisher != nil {
			if err := mqttPublisher.Publish(result.Packet); err != nil {
				log.Printf("blesdr: mqtt publish: %v", err)
			}
		}
	}

	log.Println("blesdr: stream ended")
}
