// Package edge runs on the capture device: it grabs frames and hands them to the server.
package edge

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SubmitHTTP = "http"
	SubmitSQS  = "sqs"
)

// Config is the edge device configuration file.
type Config struct {
	DeviceID string        `yaml:"device_id"`
	Interval time.Duration `yaml:"interval"` // between captures in continuous mode
	SaveDir  string        `yaml:"save_dir"` // keep a copy of every frame when set
	Camera   CameraConfig  `yaml:"camera"`
	Submit   SubmitConfig  `yaml:"submit"`
}

type CameraConfig struct {
	Device       int `yaml:"device"`
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	JPEGQuality  int `yaml:"jpeg_quality"`
	WarmupFrames int `yaml:"warmup_frames"` // frames dropped after open while exposure settles
}

type SubmitConfig struct {
	Mode    string        `yaml:"mode"` // http or sqs
	Timeout time.Duration `yaml:"timeout"`

	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`

	QueueURL  string `yaml:"queue_url"`
	AWSRegion string `yaml:"aws_region"`
}

func DefaultConfig() *Config {
	host, _ := os.Hostname()
	return &Config{
		DeviceID: host,
		Interval: 5 * time.Second,
		Camera: CameraConfig{
			Width:        1280,
			Height:       720,
			JPEGQuality:  90,
			WarmupFrames: 5,
		},
		Submit: SubmitConfig{
			Mode:      SubmitHTTP,
			Timeout:   30 * time.Second,
			ServerURL: "http://localhost:8080",
			AWSRegion: "ap-southeast-1",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DeviceID == "" {
		errs = append(errs, errors.New("device_id is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("camera.jpeg_quality %d is outside 1-100", c.Camera.JPEGQuality))
	}
	switch c.Submit.Mode {
	case SubmitHTTP:
		if c.Submit.ServerURL == "" {
			errs = append(errs, errors.New("submit.server_url is required for http mode"))
		}
		if c.Submit.Token == "" && (c.Submit.Username == "" || c.Submit.Password == "") {
			errs = append(errs, errors.New("submit.token or submit.username and submit.password are required for http mode"))
		}
	case SubmitSQS:
		if c.Submit.QueueURL == "" {
			errs = append(errs, errors.New("submit.queue_url is required for sqs mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown submit.mode %q (must be http or sqs)", c.Submit.Mode))
	}
	return errors.Join(errs...)
}
