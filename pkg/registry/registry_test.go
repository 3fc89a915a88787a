package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SIXwishlist/pulp/pkg/storage"
	"github.com/SIXwishlist/pulp/pkg/storage/memory"
)

func TestStaticRegistry(t *testing.T) {
	ds := memory.New()
	reg := NewStatic()
	reg.Register("rpm", ds.Collection("units_rpm"), "name", "version")
	reg.Register("erratum", ds.Collection("units_erratum"), "id")

	t.Run("should_resolve_natural_key_fields", func(t *testing.T) {
		fields, err := reg.NaturalKeyFields("rpm")
		require.NoError(t, err)
		require.Equal(t, []string{"name", "version"}, fields)
	})

	t.Run("should_resolve_unit_collection", func(t *testing.T) {
		coll, err := reg.UnitCollection("erratum")
		require.NoError(t, err)
		require.NotNil(t, coll)
	})

	t.Run("should_fail_for_unknown_type", func(t *testing.T) {
		_, err := reg.NaturalKeyFields("docker")
		require.ErrorIs(t, err, storage.ErrUnknownUnitType)

		_, err = reg.UnitCollection("docker")
		require.ErrorIs(t, err, storage.ErrUnknownUnitType)
	})

	t.Run("should_list_type_ids_sorted", func(t *testing.T) {
		require.Equal(t, []string{"erratum", "rpm"}, reg.TypeIDs())
	})

	t.Run("should_copy_natural_key_slice", func(t *testing.T) {
		fields, err := reg.NaturalKeyFields("rpm")
		require.NoError(t, err)
		fields[0] = "mutated"

		again, err := reg.NaturalKeyFields("rpm")
		require.NoError(t, err)
		require.Equal(t, []string{"name", "version"}, again)
	})
}
