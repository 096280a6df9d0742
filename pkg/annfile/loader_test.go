package annfile

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/hnswann/engine/pkg/format"
	"github.com/hnswann/engine/pkg/hnsw"
)

func buildAndSave(t *testing.T, path string, count, dim int) [][]float32 {
	t.Helper()

	idx := hnsw.New(hnsw.IndexConfig{M: 16, EfConstruction: 200, Seed: 7})
	rng := rand.New(rand.NewSource(7))

	vectors := make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = rng.Float32()
		}
		vectors[i] = vec
		if _, err := idx.Insert(vec); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return vectors
}

func TestLoadThreePointSanity(t *testing.T) {
	idx := hnsw.New(hnsw.IndexConfig{M: 16, EfConstruction: 200, Seed: 1})
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	for _, v := range vectors {
		if _, err := idx.Insert(v); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "three.hnswann")
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer loaded.Close()

	if loaded.State() != Ready {
		t.Errorf("expected state Ready, got %s", loaded.State())
	}

	results := loaded.Search([]float32{0.95, 0.05, 0}, 1, 10)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != 0 {
		t.Errorf("expected closest match to be vector 0, got %d", results[0].ID)
	}
}

func TestLoadDeterministicAcrossIndependentLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "det.hnswann")
	vectors := buildAndSave(t, path, 200, 32)

	a, err := Load(path)
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	defer a.Close()

	b, err := Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	defer b.Close()

	query := vectors[17]
	ra := a.Search(query, 5, 50)
	rb := b.Search(query, 5, 50)

	if len(ra) != len(rb) {
		t.Fatalf("result count differs: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i] != rb[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, ra[i], rb[i])
		}
	}
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.hnswann")
	if err := os.WriteFile(path, make([]byte, format.HeaderSize-1), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, format.ErrKindFileTooSmall) {
		t.Fatalf("expected ErrFileTooSmall, got %v", err)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badmagic.hnswann")
	buildAndSave(t, path, 10, 8)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	data[0] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, format.ErrKindInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestLoadRejectsOffsetInconsistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badoffset.hnswann")
	buildAndSave(t, path, 50, 16)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	// Point QuantizedVectorsOffset back at the start of the node table, so
	// it overlaps the node records instead of following them.
	binary.LittleEndian.PutUint64(data[48:56], format.HeaderSize)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, format.ErrKindOffsetInconsistent) {
		t.Fatalf("expected ErrOffsetInconsistent, got %v", err)
	}
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.hnswann")
	buildAndSave(t, path, 50, 16)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	flipAt := format.HeaderSize + 17
	data[flipAt] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, format.ErrKindChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}
