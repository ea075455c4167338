// Package main generates leapetl's markdown reference: one page per CLI
// command, the configuration reference and the warehouse table listing.
//
// Usage:
//
//	go run ./scripts/gendocs -gen=cli -outdir=docs/cli
//	go run ./scripts/gendocs -gen=schema -outdir=docs/reference
//	go run ./scripts/gendocs -gen=all
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

type generator struct {
	name   string
	subdir string
	run    func(outDir string) error
}

var generators = []generator{
	{name: "cli", subdir: filepath.Join("docs", "cli"), run: generateCLIDocs},
	{name: "schema", subdir: filepath.Join("docs", "reference"), run: generateSchemaDocs},
}

func main() {
	gen := flag.String("gen", "all", "what to generate: cli, schema, all")
	outDir := flag.String("outdir", "", "output directory (only with a single -gen; defaults per generator)")
	flag.Parse()

	if err := run(*gen, *outDir); err != nil {
		log.Fatal(err)
	}
	log.Println("docs generated")
}

func run(gen, outDir string) error {
	selected, err := selectGenerators(gen)
	if err != nil {
		return err
	}
	if outDir != "" && len(selected) > 1 {
		return errors.New("-outdir requires a single -gen value")
	}

	root, err := moduleRoot()
	if err != nil {
		return err
	}

	for _, g := range selected {
		dir := outDir
		if dir == "" {
			dir = filepath.Join(root, g.subdir)
		}
		log.Printf("generating %s docs into %s", g.name, dir)
		if err := g.run(dir); err != nil {
			return fmt.Errorf("%s docs: %w", g.name, err)
		}
	}
	return nil
}

func selectGenerators(name string) ([]generator, error) {
	if name == "all" {
		return generators, nil
	}
	names := make([]string, 0, len(generators))
	for _, g := range generators {
		if g.name == name {
			return []generator{g}, nil
		}
		names = append(names, g.name)
	}
	return nil, fmt.Errorf("unknown -gen value %q (use: %s, all)", name, strings.Join(names, ", "))
}

// moduleRoot walks up from the working directory to the directory holding go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above the working directory")
		}
		dir = parent
	}
}
