package mapping

import (
	"encoding/json"
	"fmt"
)

// templateConfig is the decode view of the persisted "template config"
// document; the deposit mapping lives under its depositMapping key alongside
// fields owned by other subsystems.
type templateConfig struct {
	DepositMapping json.RawMessage `json:"depositMapping,omitempty"`
}

type versionProbe struct {
	Version int `json:"version"`
}

// DecodeTemplateConfig extracts the deposit mapping from a stored template
// config blob. The version discriminator decides the schema: v2 decodes
// directly, v1 decodes into the legacy schema and migrates. A missing
// depositMapping key, a missing version, or an unrecognized version all
// yield an empty mapping rather than an error; only malformed JSON fails.
func DecodeTemplateConfig(raw []byte) (*Config, error) {
	if len(raw) == 0 {
		return New(), nil
	}

	var envelope templateConfig
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode template config: %w", err)
	}
	if len(envelope.DepositMapping) == 0 {
		return New(), nil
	}

	var probe versionProbe
	if err := json.Unmarshal(envelope.DepositMapping, &probe); err != nil {
		return nil, fmt.Errorf("failed to probe mapping version: %w", err)
	}

	switch probe.Version {
	case CurrentVersion:
		var cfg Config
		if err := json.Unmarshal(envelope.DepositMapping, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode v2 mapping: %w", err)
		}
		cfg.Normalize()
		return &cfg, nil
	case 1:
		var legacy LegacyConfig
		if err := json.Unmarshal(envelope.DepositMapping, &legacy); err != nil {
			return nil, fmt.Errorf("failed to decode v1 mapping: %w", err)
		}
		return MigrateLegacy(&legacy), nil
	default:
		return New(), nil
	}
}

// EncodeTemplateConfig serializes a mapping into a fresh template config
// blob.
func EncodeTemplateConfig(cfg *Config) ([]byte, error) {
	return EncodeTemplateConfigInto(nil, cfg)
}

// EncodeTemplateConfigInto writes the mapping into an existing template
// config document, replacing only the depositMapping key. Sibling keys owned
// by other subsystems round-trip verbatim.
func EncodeTemplateConfigInto(existing []byte, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = New()
	}
	cfg.Normalize()

	inner, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping: %w", err)
	}

	doc := make(map[string]json.RawMessage)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode existing template config: %w", err)
		}
	}
	doc["depositMapping"] = inner
	return json.Marshal(doc)
}
