package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Detector DetectorConfig `yaml:"detector"`
	Scan     ScanConfig     `yaml:"scan"`
	Cluster  ClusterConfig  `yaml:"cluster"`
	Export   ExportConfig   `yaml:"export"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file, defaults to ~/.photoface/photoface.db
}

type DetectorConfig struct {
	URL     string `yaml:"url"`   // face detector/embedder service, defaults to http://localhost:8000
	Model   string `yaml:"model"` // model name for reference only
	EmbDim  int    `yaml:"embedding_dim"`
	Timeout int    `yaml:"timeout_seconds"`
}

type ScanConfig struct {
	MinFaceConfidence float64 `yaml:"min_face_confidence"` // detections below this are discarded
}

type ClusterConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // cosine similarity, DBSCAN eps = 1 - threshold
	MinClusterSize      int     `yaml:"min_cluster_size"`     // clusters smaller than this are noise
}

type ExportConfig struct {
	OutputPath string `yaml:"output_path"` // fallback destination when a person has no album
}

const (
	defaultDetectorURL    = "http://localhost:8000"
	defaultDetectorModel  = "buffalo_l"
	defaultEmbeddingDim   = 512
	defaultSimThreshold   = 0.6
	defaultMinClusterSize = 2
)

// Settings keys recognized as runtime overrides of the typed config. They
// are persisted in the database settings table and tuned via
// `photoface settings set` or PUT /settings.
const (
	SettingMinFaceConfidence   = "scan.min_face_confidence"
	SettingSimilarityThreshold = "cluster.similarity_threshold"
	SettingMinClusterSize      = "cluster.min_cluster_size"
	SettingExportOutputPath    = "export.output_path"
)

// ApplySettings overlays persisted settings onto the loaded config. Settings
// take precedence over the config file and environment because they are the
// user's most recent explicit choice. Unknown keys and unparsable or
// out-of-range values are ignored.
func (c *Config) ApplySettings(settings map[string]string) {
	if v, ok := settings[SettingMinFaceConfidence]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 1 {
			c.Scan.MinFaceConfidence = f
		}
	}
	if v, ok := settings[SettingSimilarityThreshold]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			c.Cluster.SimilarityThreshold = f
		}
	}
	if v, ok := settings[SettingMinClusterSize]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 2 {
			c.Cluster.MinClusterSize = n
		}
	}
	if v, ok := settings[SettingExportOutputPath]; ok && v != "" {
		c.Export.OutputPath = v
	}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "photoface.db"
	}
	dir := filepath.Join(home, ".photoface")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "photoface.db")
}

// DefaultConfigPath returns the default YAML config file location (~/.photoface/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".photoface", "config.yaml")
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variable overrides (in that order of precedence).
// An empty path falls back to DefaultConfigPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{Path: defaultDatabasePath()},
		Detector: DetectorConfig{
			URL:     defaultDetectorURL,
			Model:   defaultDetectorModel,
			EmbDim:  defaultEmbeddingDim,
			Timeout: 60,
		},
		Scan:    ScanConfig{MinFaceConfidence: 0},
		Cluster: ClusterConfig{SimilarityThreshold: defaultSimThreshold, MinClusterSize: defaultMinClusterSize},
	}

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("PHOTOFACE_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DETECTOR_URL"); v != "" {
		cfg.Detector.URL = v
	}
	if v := os.Getenv("DETECTOR_MODEL"); v != "" {
		cfg.Detector.Model = v
	}
	cfg.Detector.EmbDim = envInt("DETECTOR_EMBEDDING_DIM", cfg.Detector.EmbDim)
	cfg.Detector.Timeout = envInt("DETECTOR_TIMEOUT", cfg.Detector.Timeout)
	cfg.Scan.MinFaceConfidence = envFloat("SCAN_MIN_FACE_CONFIDENCE", cfg.Scan.MinFaceConfidence)
	cfg.Cluster.SimilarityThreshold = envFloat("CLUSTER_SIMILARITY_THRESHOLD", cfg.Cluster.SimilarityThreshold)
	cfg.Cluster.MinClusterSize = envInt("CLUSTER_MIN_SIZE", cfg.Cluster.MinClusterSize)
	if v := os.Getenv("EXPORT_OUTPUT_PATH"); v != "" {
		cfg.Export.OutputPath = v
	}

	if cfg.Cluster.SimilarityThreshold <= 0 || cfg.Cluster.SimilarityThreshold > 1 {
		cfg.Cluster.SimilarityThreshold = defaultSimThreshold
	}
	if cfg.Cluster.MinClusterSize < 1 {
		cfg.Cluster.MinClusterSize = defaultMinClusterSize
	}

	return cfg, nil
}
