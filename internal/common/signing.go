package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"streampay-relayer-go/internal/signing"
)

// SigningFileConfig mirrors the YAML signing file: the deployment's domain
// separator components and the fixed settlement payee.
type SigningFileConfig struct {
	Signing struct {
		Protocol string `yaml:"protocol"`
		Version  string `yaml:"version"`
		LedgerId string `yaml:"ledger_id"`
	} `yaml:"signing"`
	Payee string `yaml:"payee"`
}

// LoadSigningConfig reads the signing YAML file and constructs the
// process-wide signing context.
func LoadSigningConfig(signingFile string) (*signing.Context, string, error) {
	var signingPath string
	if filepath.IsAbs(signingFile) {
		signingPath = signingFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		signingPath = filepath.Join(wd, signingFile)
	}

	data, err := os.ReadFile(signingPath)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read %s: %w", signingFile, err)
	}

	var config SigningFileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, "", fmt.Errorf("unable to parse %s: %w", signingFile, err)
	}

	sc, err := signing.NewContext(config.Signing.Protocol, config.Signing.Version, config.Signing.LedgerId)
	if err != nil {
		return nil, "", fmt.Errorf("invalid signing section in %s: %w", signingFile, err)
	}
	if _, err := signing.ParseAccount(config.Payee); err != nil {
		return nil, "", fmt.Errorf("invalid payee in %s: %w", signingFile, err)
	}

	return sc, signing.NormalizeAccount(config.Payee), nil
}
