package otel

// Config holds OTEL exporter configuration. It is embedded in the
// application config under MLAB_OTEL_*.
type Config struct {
	Endpoint string `envconfig:"ENDPOINT" yaml:"endpoint"`
	Enabled  bool   `envconfig:"ENABLED" yaml:"enabled"`
	Insecure bool   `envconfig:"INSECURE" yaml:"insecure"`
}
