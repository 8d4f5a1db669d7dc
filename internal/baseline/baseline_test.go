package baseline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddlens/internal/classify"
	"dddlens/internal/config"
	"dddlens/internal/rules"
	"dddlens/internal/symbol"
)

// snapshotOf runs the extract and classify stages over units and captures
// the result as an artifact.
func snapshotOf(t *testing.T, units []symbol.SourceUnit) *Artifact {
	t.Helper()
	b := symbol.NewBuilder(4, 0, nil)
	g, err := b.Build(context.Background(), units)
	require.NoError(t, err)

	reg, err := rules.NewRegistry(rules.Builtin())
	require.NoError(t, err)
	cls, err := classify.New(reg, config.DefaultConfig().Thresholds, 4, nil).Classify(context.Background(), g)
	require.NoError(t, err)
	return Snapshot(g, cls)
}

func shopUnits() []symbol.SourceUnit {
	return []symbol.SourceUnit{{
		Path: "shop/order.go",
		Decls: []symbol.RawDecl{
			{
				Name: "Order",
				Kind: symbol.KindClass,
				Fields: []symbol.Field{
					{Name: "id", Type: "string"},
					{Name: "items", Type: "[]OrderItem"},
				},
				Methods: []symbol.Method{{Name: "confirm", Signature: "confirm()"}},
			},
			{
				Name: "OrderItem",
				Kind: symbol.KindClass,
				Fields: []symbol.Field{
					{Name: "id", Type: "string"},
					{Name: "quantity", Type: "int"},
				},
				Methods: []symbol.Method{{Name: "changeQuantity", Signature: "changeQuantity(int)"}},
			},
		},
	}}
}

func TestSnapshotSortedAndTagged(t *testing.T) {
	a := snapshotOf(t, shopUnits())
	assert.Equal(t, SchemaVersion, a.SchemaVersion)
	assert.False(t, a.CreatedAt.IsZero())
	require.Len(t, a.Records, 2)
	assert.Equal(t, symbol.ID("shop/order.go#Order"), a.Records[0].Symbol.ID)
	assert.Equal(t, symbol.ID("shop/order.go#OrderItem"), a.Records[1].Symbol.ID)
	assert.NotEmpty(t, a.Records[0].Relations, "order's composition edge should be captured")
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	a := snapshotOf(t, shopUnits())
	data, err := a.Encode()
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(a, back); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSchemaMismatch(t *testing.T) {
	a := snapshotOf(t, shopUnits())
	a.SchemaVersion = SchemaVersion + 1
	data, err := a.Encode()
	require.NoError(t, err)

	_, err = Decode(data)
	assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrSchemaMismatch))
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	a := snapshotOf(t, shopUnits())
	require.NoError(t, a.SaveFile(path))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(a.Records), len(back.Records))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
