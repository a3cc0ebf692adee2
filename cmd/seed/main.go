// Package main seeds the node tree from a YAML file.
//
// Nodes are created under Root; a node with a children count also gets that
// many generated sub nodes. Nodes whose name already exists are skipped, so
// the command can be re-run against a populated database.
//
// Import Path: nodetree.io/nodetree/cmd/seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"nodetree.io/nodetree/internal/app/modules"
	"nodetree.io/nodetree/internal/config"
	apperrors "nodetree.io/nodetree/internal/pkg/errors"
	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/service"
	"nodetree.io/nodetree/internal/tree"
)

const (
	createConcurrency = 4
	regenerateRetries = 3
)

func main() {
	path := flag.String("file", "seed.yaml", "path to the seed file")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	file, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	ctx := context.Background()

	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init infrastructure: %w", err)
	}
	defer infra.Close()

	nodes, err := modules.NewNodesModule(ctx, infra)
	if err != nil {
		return fmt.Errorf("init nodes module: %w", err)
	}

	logger.Info("Starting data seeding...", zap.String("file", path), zap.Int("nodes", len(file.Nodes)))
	if err := seed(ctx, nodes.Service(), file); err != nil {
		return err
	}
	logger.Info("Data seeding completed successfully")
	return nil
}

// seedFile is the on-disk seed format.
type seedFile struct {
	Nodes []seedNode `yaml:"nodes"`
}

type seedNode struct {
	Name     string `yaml:"name"`
	Children int    `yaml:"children"`
}

func loadSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("validate seed file: %w", err)
	}
	return &file, nil
}

func (f *seedFile) validate() error {
	seen := make(map[string]struct{}, len(f.Nodes))
	for i, n := range f.Nodes {
		if n.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("nodes[%d]: duplicate name %q", i, n.Name)
		}
		seen[n.Name] = struct{}{}
		if n.Children < 0 || n.Children > service.MaxRegenerateCount {
			return fmt.Errorf("nodes[%d]: children must be between 0 and %d", i, service.MaxRegenerateCount)
		}
	}
	return nil
}

// nodeSeeder is the subset of *service.NodeService the seeder needs.
type nodeSeeder interface {
	Create(ctx context.Context, in service.CreateNodeInput) (*tree.Document, error)
	RegenerateChildren(ctx context.Context, id int64, count int) (*service.RegenerateOutput, error)
}

// seed creates the top-level nodes concurrently, then generates children one
// parent at a time. Leaf names are unique across the tree, so concurrent
// batches would only collide with each other.
func seed(ctx context.Context, svc nodeSeeder, file *seedFile) error {
	var (
		mu      sync.Mutex
		created = make(map[string]int64, len(file.Nodes))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(createConcurrency)
	for _, n := range file.Nodes {
		g.Go(func() error {
			name := n.Name
			doc, err := svc.Create(gctx, service.CreateNodeInput{Name: &name})
			if err != nil {
				if hasCode(err, apperrors.CodeNodeNameTaken) {
					logger.Info("Node already exists, skipping", zap.String("name", n.Name))
					return nil
				}
				return fmt.Errorf("create node %q: %w", n.Name, err)
			}
			mu.Lock()
			created[n.Name] = doc.ID
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, n := range file.Nodes {
		id, ok := created[n.Name]
		if !ok || n.Children == 0 {
			continue
		}
		if err := regenerate(ctx, svc, id, n.Children); err != nil {
			return fmt.Errorf("generate children of %q: %w", n.Name, err)
		}
	}
	return nil
}

func regenerate(ctx context.Context, svc nodeSeeder, id int64, count int) error {
	var err error
	for attempt := 1; attempt <= regenerateRetries; attempt++ {
		_, err = svc.RegenerateChildren(ctx, id, count)
		if err == nil || !hasCode(err, apperrors.CodeNodeNameTaken) {
			return err
		}
		logger.Debug("Generated name collided, retrying", zap.Int64("parent_id", id), zap.Int("attempt", attempt))
	}
	return err
}

func hasCode(err error, code string) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
