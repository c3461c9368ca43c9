// Copyright 2023 The hoxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import "github.com/spf13/viper"

// ===============================================================================
// NATS Related Config

// NATSReconnectConfig defines reconnect parameters
type NATSReconnectConfig struct {
	// MaxAttempts sets the max number of reconnect attempts (-1 is unlimited)
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" validate:"gte=-1"`
	// WaitInterval is the duration between reconnect attempts in seconds
	WaitInterval int `mapstructure:"wait_interval_sec" json:"wait_interval_sec" validate:"gte=1"`
}

// NATSKeyValueConfig defines the JetStream key-value buckets used for short lived records
type NATSKeyValueConfig struct {
	// ThrottleBucket is the bucket holding the recently-pushed records
	ThrottleBucket string `mapstructure:"throttle_bucket" json:"throttle_bucket" validate:"required"`
	// SessionBucket is the bucket holding member session markers
	SessionBucket string `mapstructure:"session_bucket" json:"session_bucket" validate:"required"`
	// SessionTTL is the session marker expiry in seconds
	SessionTTL int `mapstructure:"session_ttl_sec" json:"session_ttl_sec" validate:"gte=1"`
	// CallTimeout is the max duration of one key-value operation in seconds
	CallTimeout int `mapstructure:"call_timeout_sec" json:"call_timeout_sec" validate:"gte=1"`
}

// NATSConfig defines parameters for connecting to NATS server
type NATSConfig struct {
	// ServerURI is the NATS connection URI
	ServerURI string `mapstructure:"server_uri" json:"server_uri" validate:"required,uri"`
	// ConnectTimeout is the max duration for connecting to NATS server in seconds
	ConnectTimeout int `mapstructure:"connect_timeout_sec" json:"connect_timeout_sec" validate:"gte=1"`
	// Reconnect defines reconnect parameters
	Reconnect NATSReconnectConfig `mapstructure:"reconnect" json:"reconnect" validate:"required,dive"`
	// KeyValue defines the key-value buckets
	KeyValue NATSKeyValueConfig `mapstructure:"kv" json:"kv" validate:"required,dive"`
}

// ===============================================================================
// Member Store Related Config

// MemberStoreConfig defines the durable member store
type MemberStoreConfig struct {
	// Driver selects the backend: postgres or sqlite
	Driver string `mapstructure:"driver" json:"driver" validate:"required,oneof=postgres sqlite"`
	// DSN is the connection string (postgres) or database file path (sqlite)
	DSN string `mapstructure:"dsn" json:"-" validate:"required"`
	// CallTimeout is the max duration of one store query in seconds
	CallTimeout int `mapstructure:"call_timeout_sec" json:"call_timeout_sec" validate:"gte=1"`
}

// ===============================================================================
// Push Related Config

// PushConfig defines the mobile push delivery service client
type PushConfig struct {
	// Enabled whether to deliver push notifications. When disabled they are only logged.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// ProjectID is the Firebase project ID
	ProjectID string `mapstructure:"project_id" json:"project_id" validate:"required_if=Enabled true"`
	// CredentialsFile is the Google service account JSON file
	CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file" validate:"required_if=Enabled true"`
	// Endpoint overrides the FCM API base URL
	Endpoint string `mapstructure:"endpoint" json:"endpoint" validate:"required,url"`
	// RequestTimeout is the max duration of one push request in seconds
	RequestTimeout int `mapstructure:"request_timeout_sec" json:"request_timeout_sec" validate:"gte=1"`
}

// ===============================================================================
// HTTP Related Config

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"required,gt=0,lt=65536"`
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout. Must be zero for the SSE endpoint
	// to outlive it.
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle_timeout_sec" json:"idle_timeout_sec" validate:"gte=0"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"request_id_header" json:"request_id_header"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"do_not_log_headers" json:"do_not_log_headers"`
}

// HTTPConfig defines HTTP API / server parameters
type HTTPConfig struct {
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"server_config" json:"server_config" validate:"required,dive"`
	// Logging defines operation logging parameters
	Logging HTTPRequestLogging `mapstructure:"logging_config" json:"logging_config" validate:"required,dive"`
}

// APIEndpointConfig defines API endpoint config
type APIEndpointConfig struct {
	// PathPrefix is the end-point path prefix for the APIs
	PathPrefix string `mapstructure:"path_prefix" json:"path_prefix" validate:"required"`
}

// APIServerConfig defines configuration for the API server
type APIServerConfig struct {
	// HTTPSetting is the HTTP API / server parameters
	HTTPSetting HTTPConfig `mapstructure:"api_server" json:"api_server" validate:"required,dive"`
	// Endpoints is the API endpoint config parameters
	Endpoints APIEndpointConfig `mapstructure:"endpoint_config" json:"endpoint_config" validate:"required,dive"`
}

// ===============================================================================
// Live Connection Related Config

// ConnectionConfig defines live SSE connection parameters
type ConnectionConfig struct {
	// MaxIdle is the idle ceiling in seconds after which a connection is torn down
	MaxIdle int `mapstructure:"max_idle_sec" json:"max_idle_sec" validate:"gte=60"`
	// IdleCheckInterval is how often idle connections are swept in seconds
	IdleCheckInterval int `mapstructure:"idle_check_interval_sec" json:"idle_check_interval_sec" validate:"gte=1"`
	// BufferSize is the number of events a connection can buffer before sends fail
	BufferSize int `mapstructure:"buffer_size" json:"buffer_size" validate:"gte=1"`
	// SendTimeout is the max duration to wait on a full connection buffer in milliseconds
	SendTimeout int `mapstructure:"send_timeout_ms" json:"send_timeout_ms" validate:"gte=1"`
	// HeartbeatInterval is the keep-alive comment interval in seconds. 0 disables it.
	HeartbeatInterval int `mapstructure:"heartbeat_interval_sec" json:"heartbeat_interval_sec" validate:"gte=0"`
}

// ===============================================================================
// Proximity Pipeline Related Config

// ProximityConfig defines the proximity event pipeline parameters
type ProximityConfig struct {
	// RadiusMeters is the "right next to them" distance used by both event handlers
	RadiusMeters float64 `mapstructure:"radius_meters" json:"radius_meters" validate:"gt=0"`
	// PushCooldown is the minimum time between two pushes to the same member in seconds
	PushCooldown int `mapstructure:"push_cooldown_sec" json:"push_cooldown_sec" validate:"gte=1"`
	// Workers is the number of parallel event processing workers
	Workers int `mapstructure:"workers" json:"workers" validate:"gte=1"`
	// QueueSize is the per worker event buffer
	QueueSize int `mapstructure:"queue_size" json:"queue_size" validate:"gte=1"`
	// SubmitTimeout is the max duration the write path waits to enqueue an event in milliseconds
	SubmitTimeout int `mapstructure:"submit_timeout_ms" json:"submit_timeout_ms" validate:"gte=1"`
}

// ===============================================================================
// Observability Related Config

// MetricsConfig defines Prometheus metrics export
type MetricsConfig struct {
	// Enabled whether to serve the metrics end-point
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Path is the metrics end-point path
	Path string `mapstructure:"path" json:"path" validate:"required"`
}

// TracingConfig defines OpenTelemetry trace export
type TracingConfig struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables export.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Insecure disables TLS toward the collector
	Insecure bool `mapstructure:"insecure" json:"insecure"`
	// SamplingRate fraction of traces recorded
	SamplingRate float64 `mapstructure:"sampling_rate" json:"sampling_rate" validate:"gte=0,lte=1"`
}

// ===============================================================================
// Complete Config

// SystemConfig defines the complete system config
type SystemConfig struct {
	// NATS are the NATS related config parameters
	NATS NATSConfig `mapstructure:"nats" json:"nats" validate:"required,dive"`
	// MemberStore are the member store config parameters
	MemberStore MemberStoreConfig `mapstructure:"member_store" json:"member_store" validate:"required,dive"`
	// Push are the push delivery config parameters
	Push PushConfig `mapstructure:"push" json:"push" validate:"required,dive"`
	// API are the API server configs
	API APIServerConfig `mapstructure:"api" json:"api" validate:"required,dive"`
	// Connection are the live connection configs
	Connection ConnectionConfig `mapstructure:"connection" json:"connection" validate:"required,dive"`
	// Proximity are the proximity pipeline configs
	Proximity ProximityConfig `mapstructure:"proximity" json:"proximity" validate:"required,dive"`
	// Metrics are the metrics export configs
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics" validate:"required,dive"`
	// Tracing are the trace export configs
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing" validate:"required,dive"`
}

// ===============================================================================

// InstallDefaultConfigValues installs default config parameters in viper
func InstallDefaultConfigValues() {
	// Default NATS settings
	viper.SetDefault("nats.server_uri", "nats://127.0.0.1:4222")
	viper.SetDefault("nats.connect_timeout_sec", 30)
	viper.SetDefault("nats.reconnect.max_attempts", -1)
	viper.SetDefault("nats.reconnect.wait_interval_sec", 15)
	viper.SetDefault("nats.kv.throttle_bucket", "hoxy-recently-pushed")
	viper.SetDefault("nats.kv.session_bucket", "hoxy-session")
	viper.SetDefault("nats.kv.session_ttl_sec", 300)
	viper.SetDefault("nats.kv.call_timeout_sec", 5)

	// Default member store settings
	viper.SetDefault("member_store.driver", "sqlite")
	viper.SetDefault("member_store.dsn", "data/hoxy.db")
	viper.SetDefault("member_store.call_timeout_sec", 10)

	// Default push settings
	viper.SetDefault("push.enabled", false)
	viper.SetDefault("push.project_id", "")
	viper.SetDefault("push.credentials_file", "")
	viper.SetDefault("push.endpoint", "https://fcm.googleapis.com")
	viper.SetDefault("push.request_timeout_sec", 10)

	// Default API server settings
	viper.SetDefault("api.endpoint_config.path_prefix", "/")
	viper.SetDefault("api.api_server.server_config.listen_on", "0.0.0.0")
	viper.SetDefault("api.api_server.server_config.listen_port", 8080)
	viper.SetDefault("api.api_server.server_config.read_timeout_sec", 60)
	viper.SetDefault("api.api_server.server_config.write_timeout_sec", 0)
	viper.SetDefault("api.api_server.server_config.idle_timeout_sec", 600)
	viper.SetDefault(
		"api.api_server.logging_config.request_id_header", "Hoxy-Request-ID",
	)
	viper.SetDefault(
		"api.api_server.logging_config.do_not_log_headers", []string{
			"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
		},
	)

	// Default live connection settings
	viper.SetDefault("connection.max_idle_sec", 1800)
	viper.SetDefault("connection.idle_check_interval_sec", 60)
	viper.SetDefault("connection.buffer_size", 16)
	viper.SetDefault("connection.send_timeout_ms", 500)
	viper.SetDefault("connection.heartbeat_interval_sec", 30)

	// Default proximity pipeline settings
	viper.SetDefault("proximity.radius_meters", 2.0)
	viper.SetDefault("proximity.push_cooldown_sec", 3600)
	viper.SetDefault("proximity.workers", 4)
	viper.SetDefault("proximity.queue_size", 64)
	viper.SetDefault("proximity.submit_timeout_ms", 200)

	// Default observability settings
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("tracing.endpoint", "")
	viper.SetDefault("tracing.insecure", false)
	viper.SetDefault("tracing.sampling_rate", 1.0)
}
