package vectorindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// indexFile is the serialized vector structure.
type indexFile struct {
	Dimension int
	Vectors   [][]float32
}

// mapFile is the serialized id mapping and counter side-car.
type mapFile struct {
	IDMap  map[int64]string
	NextID int64
}

// load restores persisted state. Neither file present means a fresh index;
// a partial or inconsistent pair is an error whose recovery path is Rebuild.
func (ix *Index) load() error {
	_, idxErr := os.Stat(ix.indexPath)
	_, mapErr := os.Stat(ix.mapPath)

	switch {
	case os.IsNotExist(idxErr) && os.IsNotExist(mapErr):
		slog.Info("creating new vector index", "dimension", ix.dimension)
		return nil
	case os.IsNotExist(idxErr) || os.IsNotExist(mapErr):
		return fmt.Errorf("index files diverged (one of %s, %s missing): rebuild required",
			ix.indexPath, ix.mapPath)
	case idxErr != nil:
		return idxErr
	case mapErr != nil:
		return mapErr
	}

	var idx indexFile
	if err := decodeFile(ix.indexPath, &idx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	var m mapFile
	if err := decodeFile(ix.mapPath, &m); err != nil {
		return fmt.Errorf("load id map: %w", err)
	}

	if idx.Dimension != ix.dimension {
		return fmt.Errorf("persisted dimension %d does not match configured %d: rebuild required",
			idx.Dimension, ix.dimension)
	}
	if m.NextID != int64(len(idx.Vectors)) || len(m.IDMap) != len(idx.Vectors) {
		return fmt.Errorf("index and id map diverged (%d vectors, %d mapped, next id %d): rebuild required",
			len(idx.Vectors), len(m.IDMap), m.NextID)
	}

	ix.vectors = idx.Vectors
	ix.idMap = m.IDMap
	if ix.idMap == nil {
		ix.idMap = make(map[int64]string)
	}
	ix.nextID = m.NextID

	slog.Info("loaded vector index", "vectors", len(ix.vectors), "dimension", ix.dimension)
	return nil
}

// persistLocked writes both files, each via temp-file-then-rename so a crash
// never leaves a torn file. Callers must hold the write lock.
func (ix *Index) persistLocked() error {
	if err := encodeFile(ix.indexPath, indexFile{Dimension: ix.dimension, Vectors: ix.vectors}); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := encodeFile(ix.mapPath, mapFile{IDMap: ix.idMap, NextID: ix.nextID}); err != nil {
		return fmt.Errorf("write id map: %w", err)
	}
	slog.Debug("vector index persisted", "vectors", len(ix.vectors))
	return nil
}

func encodeFile(path string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
