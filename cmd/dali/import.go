package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/dali"
	"github.com/gogpu/dali/imageio"
	"github.com/gogpu/dali/resource"
)

func runImport(args []string) {
	cfg, paths := parseConfig("import", args, func(fs *flag.FlagSet, f *Config) {
		fs.StringVar(&f.Root, "root", "", "storage root (default $HOME/Dali/storage)")
		fs.StringVar(&f.Resource, "resource", "", "target resource name (default import-512)")
		fs.IntVar(&f.Size, "size", 0, "side of the stored grayscale square; negative copies files unchanged (default 512)")
		fs.StringVar(&f.Format, "format", "", "stored format: png, jpg, bmp or webp (default png)")
	})
	if len(paths) == 0 {
		log.Fatal("import: no files or directories given")
	}
	format, err := imageio.ParseFormat(cfg.Format)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	store, err := resource.Open(cfg.ResourceDir(), resource.WithLogger(dali.Logger()))
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	imp := &importer{store: store, size: cfg.Size, format: format}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("import: path not found: %s", path)
		}
		fmt.Printf("Found: %s\n", path)
		if info.IsDir() {
			err = imp.dir(path)
		} else if info.Mode().IsRegular() {
			err = imp.file(path)
		}
		if err != nil {
			log.Fatalf("import: %v", err)
		}
	}
	fmt.Printf("Imported %d files (%s), skipped %d into %s\n",
		imp.imported, humanize.Bytes(imp.bytes), imp.skipped, store.Dir())
}

// importer copies or converts files into a resource.
type importer struct {
	store  *resource.Storage
	size   int
	format imageio.Format

	imported, skipped int
	bytes             uint64
}

// dir imports the regular files directly inside path.
func (imp *importer) dir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := imp.file(filepath.Join(path, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) file(path string) error {
	stored, err := imp.store.ContainsFile(path)
	if err != nil {
		return err
	}
	if stored {
		fmt.Printf("Skipping (already imported): %s\n", path)
		imp.skipped++
		return nil
	}
	if !imp.store.Accepts(path) {
		fmt.Printf("Skipping (invalid format): %s\n", path)
		imp.skipped++
		return nil
	}

	var name string
	if imp.size < 0 {
		name, err = imp.store.StoreFile(path)
	} else {
		name, err = imp.convert(path)
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	if info, err := os.Stat(imp.store.Path(name)); err == nil {
		//nolint:gosec // G115: file sizes are non-negative
		imp.bytes += uint64(info.Size())
	}
	imp.imported++
	fmt.Printf("Copied: %s to %s\n", path, imp.store.Path(name))
	return nil
}

// convert stores the centered square of path as a size x size grayscale
// image.
func (imp *importer) convert(path string) (string, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return "", err
	}
	return imp.store.Store(imageio.SquareGray(img, imp.size), imp.format)
}

func runList(args []string) {
	var stream string
	cfg, _ := parseConfig("list", args, func(fs *flag.FlagSet, f *Config) {
		fs.StringVar(&f.Root, "root", "", "storage root (default $HOME/Dali/storage)")
		fs.StringVar(&f.Resource, "resource", "", "resource name (default import-512)")
		fs.StringVar(&stream, "stream", "", "print only entries this stream has not seen, then advance it")
	})
	store, err := resource.Open(cfg.ResourceDir(), resource.WithLogger(dali.Logger()))
	if err != nil {
		log.Fatalf("list: %v", err)
	}

	var (
		names []string
		st    *resource.Stream
	)
	if stream == "" {
		names, err = store.List()
	} else if st, err = store.Stream(stream); err == nil {
		names, err = st.NewItems()
	}
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	for _, name := range names {
		fmt.Println(store.Path(name))
	}
	if st != nil && len(names) > 0 {
		if err := st.Update(names[len(names)-1]); err != nil {
			log.Fatalf("list: %v", err)
		}
	}
}
