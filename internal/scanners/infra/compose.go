// Package infra holds scanners for deployment descriptors.
package infra

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/scanner"

	"gopkg.in/yaml.v3"
)

// Register installs every infrastructure scanner.
func Register(r *scanner.Registry) error {
	return r.Register(NewComposeScanner())
}

var composePatterns = []string{
	"**/docker-compose*.yml", "**/docker-compose*.yaml",
	"**/compose*.yml", "**/compose*.yaml",
}

// ComposeScanner turns docker-compose services into components and their
// depends_on entries into relationships.
type ComposeScanner struct {
	scanner.Base
}

func NewComposeScanner() *ComposeScanner {
	return &ComposeScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "docker-compose",
		DisplayName:  "Docker Compose Scanner",
		Languages:    []string{"yaml"},
		FilePatterns: composePatterns,
		Priority:     scanner.PriorityInfrastructure,
	}}}
}

type composeFile struct {
	Name     string    `yaml:"name"`
	Services yaml.Node `yaml:"services"`
}

type composeService struct {
	Image       string    `yaml:"image"`
	Build       yaml.Node `yaml:"build"`
	Ports       yaml.Node `yaml:"ports"`
	DependsOn   dependsOn `yaml:"depends_on"`
	Environment yaml.Node `yaml:"environment"`
}

// dependsOn accepts both the short list form and the long map form with
// conditions.
type dependsOn []string

func (d *dependsOn) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return err
		}
		*d = list
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			*d = append(*d, n.Content[i].Value)
		}
	default:
		return fmt.Errorf("line %d: depends_on must be a list or a map", n.Line)
	}
	return nil
}

func (s *ComposeScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindAny(composePatterns...)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder().Discovered(len(files))

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats.FileScanned()
		data, err := sc.ReadFile(rel)
		if err != nil {
			stats.Failed("read_error", err.Error())
			result.Warnf("cannot read %s: %v", rel, err)
			continue
		}
		if err := collectCompose(result, rel, data); err != nil {
			stats.Failed("yaml_parse_error", err.Error())
			result.Warnf("failed to parse %s: %v", rel, err)
			continue
		}
		stats.ParsedSuccessfully()
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("services", len(result.Components)).
		Int("relationships", len(result.Relationships)).
		Msg("compose files scanned")
	return result, nil
}

// collectCompose walks the services mapping in file order. Nothing is added
// to result unless the whole file decodes.
func collectCompose(result *scanner.Result, rel string, data []byte) error {
	var doc composeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Services.Kind != yaml.MappingNode {
		if doc.Services.Kind == 0 {
			return nil
		}
		return fmt.Errorf("line %d: services must be a map", doc.Services.Line)
	}

	dir := path.Dir(rel)
	project := doc.Name
	if project == "" {
		project = path.Base(dir)
	}
	serviceID := func(name string) string { return model.StableID("compose", dir, name) }

	var (
		components    []model.Component
		relationships []model.Relationship
	)
	for i := 0; i+1 < len(doc.Services.Content); i += 2 {
		key, value := doc.Services.Content[i], doc.Services.Content[i+1]
		var svc composeService
		if err := value.Decode(&svc); err != nil {
			return fmt.Errorf("service %s: %w", key.Value, err)
		}

		kind, technology := classify(svc)
		metadata := map[string]string{
			"composeProject": project,
			"typeConfidence": confidence.Low.String(),
		}
		if svc.Image != "" {
			metadata["image"] = svc.Image
		}
		if ports := portsOf(svc.Ports); len(ports) > 0 {
			metadata["ports"] = strings.Join(ports, ",")
		}
		if env := envNames(svc.Environment); len(env) > 0 {
			metadata["environment"] = strings.Join(env, ",")
		}
		components = append(components, model.Component{
			ID:          serviceID(key.Value),
			Name:        key.Value,
			Type:        kind,
			Description: "docker-compose service " + key.Value,
			Technology:  technology,
			Repository:  dir,
			Metadata:    metadata,
			Confidence:  confidence.High,
			Evidence:    &model.Evidence{Filepath: rel, StartLine: key.Line},
		})

		for _, target := range svc.DependsOn {
			relationships = append(relationships, model.Relationship{
				SourceID:    serviceID(key.Value),
				TargetID:    serviceID(target),
				Type:        model.RelDependsOn,
				Description: key.Value + " depends on " + target,
				Technology:  "docker-compose",
				Confidence:  confidence.High,
			})
		}
	}

	result.Components = append(result.Components, components...)
	result.Relationships = append(result.Relationships, relationships...)
	return nil
}

var imageKinds = []struct {
	kind     model.ComponentType
	families []string
}{
	{model.ComponentDatabase, []string{
		"postgres", "postgis", "mysql", "mariadb", "mongo", "cassandra", "scylla", "cockroach",
		"mssql", "oracle", "couchdb", "neo4j", "clickhouse", "timescale", "influxdb", "elasticsearch", "opensearch",
	}},
	{model.ComponentMessageBroker, []string{
		"kafka", "redpanda", "rabbitmq", "nats", "activemq", "artemis", "pulsar", "mosquitto", "emqx", "zookeeper",
	}},
	{model.ComponentCache, []string{"redis", "valkey", "memcached", "hazelcast", "keydb", "dragonfly"}},
	{model.ComponentAPIGateway, []string{"nginx", "traefik", "envoy", "kong", "haproxy", "caddy"}},
}

// classify guesses the component type from the image name. Services built
// from local sources are application services.
func classify(svc composeService) (model.ComponentType, string) {
	if svc.Image == "" {
		return model.ComponentService, "docker"
	}
	name := imageName(svc.Image)
	if svc.Build.Kind == 0 {
		for _, k := range imageKinds {
			for _, family := range k.families {
				if strings.Contains(name, family) {
					return k.kind, name
				}
			}
		}
	}
	return model.ComponentService, name
}

// imageName strips registry, namespace, tag and digest:
// docker.io/bitnami/kafka:3.6 is kafka.
func imageName(image string) string {
	name, _, _ := strings.Cut(image, "@")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name, _, _ = strings.Cut(name, ":")
	return strings.ToLower(name)
}

// envNames lists variable names from either environment form, sorted.
func envNames(n yaml.Node) []string {
	var names []string
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			names = append(names, n.Content[i].Value)
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			name, _, _ := strings.Cut(item.Value, "=")
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// portsOf reads short ("8080:80") and long (published/target) port entries.
func portsOf(n yaml.Node) []string {
	var ports []string
	for _, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			ports = append(ports, item.Value)
		case yaml.MappingNode:
			var long struct {
				Published string `yaml:"published"`
				Target    string `yaml:"target"`
			}
			if item.Decode(&long) == nil && long.Target != "" {
				if long.Published != "" {
					ports = append(ports, long.Published+":"+long.Target)
				} else {
					ports = append(ports, long.Target)
				}
			}
		}
	}
	return ports
}
