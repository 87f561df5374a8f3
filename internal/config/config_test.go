package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detector.URL != "http://localhost:8000" {
		t.Errorf("expected default detector URL, got %q", cfg.Detector.URL)
	}
	if cfg.Cluster.SimilarityThreshold != 0.6 {
		t.Errorf("expected default similarity threshold 0.6, got %f", cfg.Cluster.SimilarityThreshold)
	}
	if cfg.Cluster.MinClusterSize != 2 {
		t.Errorf("expected default min cluster size 2, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Detector.EmbDim != 512 {
		t.Errorf("expected default embedding dim 512, got %d", cfg.Detector.EmbDim)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/test.db
cluster:
  similarity_threshold: 0.75
  min_cluster_size: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("expected database path from file, got %q", cfg.Database.Path)
	}
	if cfg.Cluster.SimilarityThreshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %f", cfg.Cluster.SimilarityThreshold)
	}
	if cfg.Cluster.MinClusterSize != 3 {
		t.Errorf("expected min cluster size 3, got %d", cfg.Cluster.MinClusterSize)
	}
	// Untouched sections keep defaults.
	if cfg.Detector.URL != "http://localhost:8000" {
		t.Errorf("expected default detector URL, got %q", cfg.Detector.URL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CLUSTER_SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("PHOTOFACE_DB", "/tmp/env.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cluster.SimilarityThreshold != 0.8 {
		t.Errorf("expected env threshold 0.8, got %f", cfg.Cluster.SimilarityThreshold)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("expected env database path, got %q", cfg.Database.Path)
	}
}

func TestApplySettings_OverridesLoadedValues(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.ApplySettings(map[string]string{
		SettingSimilarityThreshold: "0.75",
		SettingMinClusterSize:      "3",
		SettingMinFaceConfidence:   "0.5",
		SettingExportOutputPath:    "/exports",
		"unrelated.key":            "ignored",
	})

	if cfg.Cluster.SimilarityThreshold != 0.75 {
		t.Errorf("expected threshold 0.75 from settings, got %f", cfg.Cluster.SimilarityThreshold)
	}
	if cfg.Cluster.MinClusterSize != 3 {
		t.Errorf("expected min cluster size 3 from settings, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Scan.MinFaceConfidence != 0.5 {
		t.Errorf("expected min face confidence 0.5 from settings, got %f", cfg.Scan.MinFaceConfidence)
	}
	if cfg.Export.OutputPath != "/exports" {
		t.Errorf("expected export path from settings, got %q", cfg.Export.OutputPath)
	}
}

func TestApplySettings_IgnoresInvalidValues(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.ApplySettings(map[string]string{
		SettingSimilarityThreshold: "1.5",
		SettingMinClusterSize:      "1",
		SettingMinFaceConfidence:   "garbage",
	})

	if cfg.Cluster.SimilarityThreshold != 0.6 {
		t.Errorf("out-of-range threshold must be ignored, got %f", cfg.Cluster.SimilarityThreshold)
	}
	if cfg.Cluster.MinClusterSize != 2 {
		t.Errorf("min cluster size below 2 must be ignored, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Scan.MinFaceConfidence != 0 {
		t.Errorf("unparsable confidence must be ignored, got %f", cfg.Scan.MinFaceConfidence)
	}
}

func TestLoad_InvalidThresholdFallsBack(t *testing.T) {
	t.Setenv("CLUSTER_SIMILARITY_THRESHOLD", "7.5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cluster.SimilarityThreshold != 0.6 {
		t.Errorf("expected fallback threshold 0.6, got %f", cfg.Cluster.SimilarityThreshold)
	}
}
