// Package config loads list definitions registered at server start.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/catatsuy/kusari/internal/llmgr"
)

var (
	ErrEmptyName     = errors.New("list name is empty")
	ErrDuplicateName = errors.New("list name declared twice")
	ErrInvalidSize   = errors.New("list size out of range")
)

// List declares one list.
type List struct {
	Name string `toml:"name"`
	Size int    `toml:"size"`
}

// File is the top level of a kusari TOML file:
//
//	[[list]]
//	name = "jobs"
//	size = 64
type File struct {
	Lists []List `toml:"list"`
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode %s: unknown keys %v", path, undecoded)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) Validate() error {
	seen := make(map[string]struct{}, len(f.Lists))
	for i, l := range f.Lists {
		if l.Name == "" {
			return fmt.Errorf("list %d: %w", i, ErrEmptyName)
		}
		if _, ok := seen[l.Name]; ok {
			return fmt.Errorf("list %q: %w", l.Name, ErrDuplicateName)
		}
		seen[l.Name] = struct{}{}
		if l.Size < llmgr.MinElementSize || l.Size > llmgr.MaxElementSize {
			return fmt.Errorf("list %q size %d: %w", l.Name, l.Size, ErrInvalidSize)
		}
	}
	return nil
}
