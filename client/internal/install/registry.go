package install

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/util"
)

// Record describes an activated version.
type Record struct {
	Name        string    `json:"name"`
	Executable  string    `json:"executable"`
	Platform    string    `json:"platform,omitempty"`
	NeedsRunner bool      `json:"needsRunner,omitempty"`
	InstalledAt time.Time `json:"installedAt"`
}

type registryFile struct {
	Versions []Record `json:"versions"`
}

// Registry persists the installed version records in a single JSON file.
type Registry struct {
	mu   sync.Mutex
	file string
}

func NewRegistry(file string) *Registry {
	return &Registry{file: file}
}

// List returns the records sorted by name. A missing file is an empty registry.
func (r *Registry) List() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load()
}

// Get returns the record of name, if any.
func (r *Registry) Get(name string) (Record, bool, error) {
	records, err := r.List()
	if err != nil {
		return Record{}, false, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

// Put adds or replaces the record with the same name.
func (r *Registry) Put(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].Name == rec.Name {
			records[i] = rec
			replaced = true
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return r.save(ctx, records)
}

// Remove drops the record of name. Removing an unknown name is a no-op.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, rec := range records {
		if rec.Name != name {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return r.save(ctx, kept)
}

func (r *Registry) load() ([]Record, error) {
	var content registryFile
	if _, err := util.ReadJson(r.file, &content); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, berrors.New(berrors.KindIO, "read registry", err)
	}

	sort.Slice(content.Versions, func(i, j int) bool {
		return content.Versions[i].Name < content.Versions[j].Name
	})
	return content.Versions, nil
}

func (r *Registry) save(ctx context.Context, records []Record) error {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
	if err := util.WriteJson(ctx, r.file, registryFile{Versions: records}); err != nil {
		return berrors.New(berrors.KindIO, "write registry", err)
	}
	return nil
}
