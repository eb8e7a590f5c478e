// Package config loads relay configuration.
//
// Configuration is assembled in layers, later layers winning:
//
//  1. built-in defaults (DefaultConfig)
//  2. zero or more YAML files, each decoded over the previous result so a
//     file only needs the keys it changes
//  3. ENOSE_* environment variables
//
// after which Validate checks the result. Command-line flags are applied by
// the caller on top of the loaded Config.
//
// # Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/enose/relay.yaml")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// # File format
//
//	mode: normal
//	shutdown_timeout: 5s
//	log:
//	  level: info
//	  format: json
//	device:
//	  addr: "0.0.0.0:8081"
//	  window: 3
//	observers:
//	  addr: "0.0.0.0:8080"
//	  accept_commands: true
//	  bus_capacity: 100
//	websocket:
//	  enabled: false
//	  addr: "0.0.0.0:8082"
//	  path: /ws
//	recorder:
//	  enabled: true
//	  path: sensor_data.csv
//	synthetic:
//	  sample: Daun Kari
//	  interval: 2s
//	serial:
//	  enabled: false
//	  port: /dev/ttyUSB0
//	  baud: 115200
//	nats:
//	  enabled: false
//	  url: nats://localhost:4222
//	  subject_prefix: enose
//	metrics:
//	  enabled: true
//	  addr: "0.0.0.0:9090"
//	  path: /metrics
//
// Unknown keys are rejected so typos surface at startup.
//
// # Environment
//
//	ENOSE_MODE, ENOSE_LOG_LEVEL, ENOSE_LOG_FORMAT, ENOSE_DEVICE_ADDR,
//	ENOSE_OBSERVER_ADDR, ENOSE_WINDOW, ENOSE_BUS_CAPACITY, ENOSE_SAMPLE,
//	ENOSE_RECORDER_PATH, ENOSE_SERIAL_PORT, ENOSE_NATS_URL,
//	ENOSE_METRICS_ADDR
//
// Setting ENOSE_RECORDER_PATH, ENOSE_SERIAL_PORT or ENOSE_NATS_URL also
// enables that feature.
package config
