package infra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"archscan/internal/model"
	"archscan/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopCompose = `name: shop
services:
  api:
    build: ./api
    image: acme/shop-api:latest
    ports:
      - "8080:8080"
    environment:
      DATABASE_URL: postgres://db/shop
      KAFKA_BROKERS: kafka:9092
    depends_on:
      db:
        condition: service_healthy
      kafka:
        condition: service_started
  db:
    image: postgres:16-alpine
  kafka:
    image: docker.io/bitnami/kafka:3.6
    ports:
      - target: 9092
        published: 19092
  cache:
    image: redis@sha256:abc
  worker:
    build:
      context: ./worker
    environment:
      - QUEUE=orders
    depends_on: [kafka, cache]
`

func newProject(t *testing.T, files map[string]string) *scanner.Context {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return scanner.NewContext(scanner.Options{Root: root})
}

func TestComposeScanner(t *testing.T) {
	sc := newProject(t, map[string]string{
		"deploy/docker-compose.yml": shopCompose,
		"deploy/values.yaml":        "replicas: 2\n",
	})
	s := NewComposeScanner()
	require.True(t, s.AppliesTo(sc))

	res, err := s.Scan(context.Background(), sc)
	require.NoError(t, err)
	require.True(t, res.Success)

	type svc struct {
		name string
		kind model.ComponentType
		tech string
	}
	var got []svc
	for _, c := range res.Components {
		got = append(got, svc{c.Name, c.Type, c.Technology})
		assert.Equal(t, "deploy", c.Repository)
		assert.Equal(t, "shop", c.Metadata["composeProject"])
	}
	assert.Equal(t, []svc{
		{"api", model.ComponentService, "shop-api"},
		{"db", model.ComponentDatabase, "postgres"},
		{"kafka", model.ComponentMessageBroker, "kafka"},
		{"cache", model.ComponentCache, "redis"},
		{"worker", model.ComponentService, "docker"},
	}, got)

	api := res.Components[0]
	assert.Equal(t, "8080:8080", api.Metadata["ports"])
	assert.Equal(t, "DATABASE_URL,KAFKA_BROKERS", api.Metadata["environment"])
	assert.Equal(t, 3, api.Evidence.StartLine)
	assert.Equal(t, "19092:9092", res.Components[2].Metadata["ports"])
	assert.Equal(t, "QUEUE", res.Components[4].Metadata["environment"])

	id := func(name string) string { return model.StableID("compose", "deploy", name) }
	var edges [][2]string
	for _, r := range res.Relationships {
		assert.Equal(t, model.RelDependsOn, r.Type)
		edges = append(edges, [2]string{r.SourceID, r.TargetID})
	}
	assert.Equal(t, [][2]string{
		{id("api"), id("db")},
		{id("api"), id("kafka")},
		{id("worker"), id("kafka")},
		{id("worker"), id("cache")},
	}, edges)

	assert.Equal(t, 1, res.Statistics.FilesScanned)
	assert.Equal(t, 1, res.Statistics.FilesParsedSuccessfully)
}

func TestComposeScanner_BadFileIsAWarning(t *testing.T) {
	sc := newProject(t, map[string]string{
		"compose.yaml":             "services:\n  web:\n    image: nginx\n    depends_on: db\n",
		"docker-compose.prod.yml":  "services: [oops\n",
		"sub/docker-compose.yaml":  "services:\n  proxy:\n    image: traefik:v3\n",
		"sub/docker-compose.empty": "services: {}\n",
	})
	res, err := NewComposeScanner().Scan(context.Background(), sc)
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Len(t, res.Components, 1)
	assert.Equal(t, "proxy", res.Components[0].Name)
	assert.Equal(t, model.ComponentAPIGateway, res.Components[0].Type)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 2, res.Statistics.FilesFailed)
}

func TestImageName(t *testing.T) {
	assert.Equal(t, "kafka", imageName("docker.io/bitnami/kafka:3.6"))
	assert.Equal(t, "app", imageName("localhost:5000/team/app:1.0"))
	assert.Equal(t, "redis", imageName("Redis@sha256:abc"))
	assert.Equal(t, "mongo", imageName("mongo"))
}
