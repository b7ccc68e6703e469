package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	files, err := Available()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, File{Version: 1, Name: "init_schema"}, files[0])
	assert.Equal(t, File{Version: 2, Name: "add_indexes"}, files[1])
}

func TestEmbeddedMigrations_HaveDownPairs(t *testing.T) {
	entries, err := fs.ReadDir(postgresFS, migrationsDir)
	require.NoError(t, err)

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if strings.HasSuffix(name, ".up.sql") {
			down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
			assert.True(t, names[down], "missing %s", down)
		}
	}
}

func TestInitSchema_DefinesLedgerConstraints(t *testing.T) {
	raw, err := fs.ReadFile(postgresFS, migrationsDir+"/000001_init_schema.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.Contains(t, sql, "CHECK (credits >= 0)")
	assert.Contains(t, sql, "external_payment_id  VARCHAR(255) UNIQUE")
	assert.Contains(t, sql, "parameters       JSONB NOT NULL")
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.EqualError(t, err, "database URL is required")
}
