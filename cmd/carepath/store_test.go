package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seedJSON = `{
  "doctors":   [{"id": "00000000-0000-0000-0000-0000000000d1", "first_name": "Wen", "last_name": "Li"}],
  "nurses":    [{"id": "00000000-0000-0000-0000-0000000000f0", "first_name": "Ana", "is_head_nurse": true}],
  "medicines": [{"id": "00000000-0000-0000-0000-0000000000a1", "name": "Ibuprofen", "price": "4.50", "stock": 20}],
  "wards":     [{"id": "00000000-0000-0000-0000-0000000000b1", "ward_type": "general", "bed_count": 4}]
}`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSeed(t *testing.T) {
	store := memory.NewStore()
	n, err := loadSeed(store, writeSeed(t, seedJSON))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	med, ok := store.Medicine(uuid.MustParse("00000000-0000-0000-0000-0000000000a1"))
	require.True(t, ok)
	assert.Equal(t, 20, med.Stock)
	assert.Equal(t, "4.50", med.Price.StringFixed(2))

	err = store.WithinTx(context.Background(), func(tx repository.Tx) error {
		w, err := tx.Wards().GetWard(context.Background(), uuid.MustParse("00000000-0000-0000-0000-0000000000b1"))
		if err != nil {
			return err
		}
		assert.Equal(t, 4, w.BedCount)
		return nil
	})
	require.NoError(t, err)
}

func TestLoadSeedRejectsBadInput(t *testing.T) {
	_, err := loadSeed(memory.NewStore(), writeSeed(t, `{"wards": [{"id": "00000000-0000-0000-0000-0000000000b1", "bed_count": 0}]}`))
	assert.ErrorContains(t, err, "bed_count must be positive")

	_, err = loadSeed(memory.NewStore(), writeSeed(t, `{not json`))
	assert.ErrorContains(t, err, "parsing seed file")

	_, err = loadSeed(memory.NewStore(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "reading seed file")
}

func TestOpenBackend(t *testing.T) {
	m := metrics.NewCollector("carepath_cmd_test", prometheus.NewRegistry())
	cfg := &config.Config{}

	be, err := openBackend(context.Background(), storeOptions{kind: storeMemory, seed: writeSeed(t, seedJSON)}, cfg, m, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, be.ready())
	assert.IsType(t, &memory.Store{}, be.store)

	_, err = openBackend(context.Background(), storeOptions{kind: "sqlite"}, cfg, m, zap.NewNop())
	assert.ErrorContains(t, err, `unknown store "sqlite"`)
}
