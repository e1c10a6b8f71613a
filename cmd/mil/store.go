package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/chazu/mil/covenant"
	"github.com/chazu/mil/manifest"
)

var errColor = color.New(color.FgRed, color.Bold)

func fatalf(format string, args ...any) {
	errColor.Fprint(os.Stderr, "Error: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func handleStoreCommand(m *manifest.Manifest, path string, code []byte) {
	if m == nil {
		fatalf("-store requires a mil.toml project manifest")
	}
	name := m.Project.Name
	version := m.Project.Version
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	art := covenant.New(name, version, Version, code)

	storePath := m.StorePath()
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		fatalf("%v", err)
	}
	s, err := covenant.OpenStore(storePath)
	if err != nil {
		fatalf("%v", err)
	}
	defer s.Close()

	if err := s.Put(art); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Stored %s as %s\n", name, art.HexHash())
}

func handleListCommand(m *manifest.Manifest) {
	if m == nil {
		fatalf("-list requires a mil.toml project manifest")
	}
	s, err := covenant.OpenStore(m.StorePath())
	if err != nil {
		fatalf("%v", err)
	}
	defer s.Close()

	entries, err := s.List()
	if err != nil {
		fatalf("%v", err)
	}
	if len(entries) == 0 {
		fmt.Println("Store is empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.HexHash, e.Name)
	}
}
