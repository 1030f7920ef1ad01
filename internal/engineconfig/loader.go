package engineconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadCalibration overlays the calibration YAML at path onto Default().
// path가 비었거나 파일이 없으면 기본값 사용 (usingDefaults=true), 에러 아님
// 파일이 있는데 깨져 있으면 설정 에러 (치명적)
func LoadCalibration(path string) (cfg Config, raw []byte, usingDefaults bool, err error) {
	if path == "" {
		return Default(), nil, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil, true, nil
		}
		return Config{}, nil, false, fmt.Errorf("read calibration %s: %w", path, err)
	}

	cfg, err = Overlay(Default(), data)
	if err != nil {
		return Config{}, data, false, fmt.Errorf("calibration %s: %w", path, err)
	}

	return cfg, data, false, nil
}

// Overlay decodes YAML on top of base; fields absent from the YAML keep base values.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Overlay(base Config, data []byte) (Config, error) {
	cfg := base.clone()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: encoding/json은 맵 키를 정렬하므로 해시 재현성 보장
func Hash(cfg Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot creates an audit snapshot of the active configuration
func NewSnapshot(cfg Config, yamlData []byte, usingDefaults bool) (*Snapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ConfigHash:      hash,
		CalibrationYAML: string(yamlData),
		UsingDefaults:   usingDefaults,
		LoanProfile:     cfg.Loan.Profile,
		GradeScheme:     cfg.Grade.Scheme,
		CreatedAt:       time.Now(),
	}, nil
}
