package migrations

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := EmbeddedSource()
	require.NoError(t, err)
	defer src.Close()

	versions, err := AvailableVersions(src)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, versions)

	for _, v := range versions {
		up, _, err := src.ReadUp(v)
		require.NoError(t, err, "version %d has an up migration", v)
		upSQL, err := io.ReadAll(up)
		up.Close()
		require.NoError(t, err)
		assert.Contains(t, strings.ToUpper(string(upSQL)), "CREATE TABLE")

		down, _, err := src.ReadDown(v)
		require.NoError(t, err, "version %d has a down migration", v)
		downSQL, err := io.ReadAll(down)
		down.Close()
		require.NoError(t, err)
		assert.Contains(t, strings.ToUpper(string(downSQL)), "DROP TABLE")
	}
}

func TestRecipesMigrationMatchesModelColumns(t *testing.T) {
	data, err := sqlFiles.ReadFile("sql/000001_create_recipes.up.sql")
	require.NoError(t, err)

	for _, column := range []string{
		"position", "title", "protein", "fat", "carbohydrate", "calories",
		"fiber", "sodium", "sugar", "calcium", "iron", "vitamin_c",
	} {
		assert.Contains(t, string(data), column)
	}
}
