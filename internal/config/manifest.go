package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acadrec/devstack/pkg/stack"
)

// yamlManifest is the on-disk shape of the stack manifest
type yamlManifest struct {
	Services []yamlService `yaml:"services"`
}

type yamlService struct {
	Name     string     `yaml:"name"`
	Endpoint string     `yaml:"endpoint"`
	Probe    *yamlProbe `yaml:"probe"`
}

type yamlProbe struct {
	Type   string `yaml:"type"`
	Target string `yaml:"target"`
}

// LoadManifest reads the stack manifest at path. A missing file is not an
// error: the built-in app+db stack is returned instead, so a bare project
// still bootstraps with the stock endpoints.
func LoadManifest(path string) ([]stack.Service, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultServices(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stack manifest %s: %w", path, err)
	}

	var dto yamlManifest
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse stack manifest %s: %w", path, err)
	}

	if len(dto.Services) == 0 {
		return nil, fmt.Errorf("stack manifest %s declares no services", path)
	}

	services := make([]stack.Service, 0, len(dto.Services))
	for i, s := range dto.Services {
		if s.Name == "" {
			return nil, fmt.Errorf("stack manifest %s: service %d has no name", path, i)
		}

		svc := stack.Service{
			Name:     s.Name,
			Endpoint: s.Endpoint,
		}

		if s.Probe != nil {
			probeType, err := parseProbeType(s.Probe.Type)
			if err != nil {
				return nil, fmt.Errorf("stack manifest %s: service %s: %w", path, s.Name, err)
			}
			if s.Probe.Target == "" {
				return nil, fmt.Errorf("stack manifest %s: service %s: probe has no target", path, s.Name)
			}
			svc.Probe = &stack.ProbeSpec{
				Type:   probeType,
				Target: s.Probe.Target,
			}
		}

		services = append(services, svc)
	}

	return services, nil
}

func parseProbeType(s string) (stack.ProbeType, error) {
	switch stack.ProbeType(s) {
	case stack.ProbeHTTP, stack.ProbeTCP, stack.ProbePostgres, stack.ProbeRedis:
		return stack.ProbeType(s), nil
	default:
		return "", fmt.Errorf("unsupported probe type: %q (supported: http, tcp, postgres, redis)", s)
	}
}
