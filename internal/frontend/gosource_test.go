package frontend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddlens/internal/symbol"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const orderSource = `package shop

type Order struct {
	id     string
	items  []OrderItem
	Status string
}

func (o *Order) Confirm() error { return nil }

func (o *Order) SetStatus(s string) { o.Status = s }

type OrderItem struct {
	id       string
	quantity int
}

func (i *OrderItem) ChangeQuantity(n int) { i.quantity = n }
`

const portsSource = `package shop

type OrderRepository interface {
	FindByID(id string) (Order, error)
	Save(o Order) error
}
`

func TestWalkExtractsDecls(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "shop/order.go", orderSource)
	writeFile(t, root, "shop/ports.go", portsSource)

	units, err := NewGoExtractor(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, units, 2)

	// Sorted by path.
	assert.True(t, units[0].Path < units[1].Path)

	var order *symbol.RawDecl
	for i := range units[0].Decls {
		if units[0].Decls[i].Name == "Order" {
			order = &units[0].Decls[i]
		}
	}
	require.NotNil(t, order)
	assert.Equal(t, symbol.KindClass, order.Kind)
	require.Len(t, order.Fields, 3)
	require.Len(t, order.Methods, 2)
	assert.Equal(t, "Confirm", order.Methods[0].Name)
	assert.Equal(t, symbol.VisibilityPublic, order.Methods[0].Visibility)
}

func TestWalkMarksReadOnlyFields(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "order.go", orderSource)

	units, err := NewGoExtractor(nil, nil).Walk(root)
	require.NoError(t, err)

	fields := map[string]symbol.Field{}
	for _, d := range units[0].Decls {
		if d.Name != "Order" {
			continue
		}
		for _, f := range d.Fields {
			fields[f.Name] = f
		}
	}
	// Unexported without a setter: read-only from outside the package.
	assert.True(t, fields["id"].ReadOnly)
	assert.True(t, fields["items"].ReadOnly)
	// Exported fields stay writable.
	assert.False(t, fields["Status"].ReadOnly)
}

func TestWalkExtractsInterfaces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ports.go", portsSource)

	units, err := NewGoExtractor(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Len(t, units[0].Decls, 1)

	repo := units[0].Decls[0]
	assert.Equal(t, symbol.KindInterface, repo.Kind)
	require.Len(t, repo.Methods, 2)
	assert.Equal(t, "FindByID(string) (Order, error)", repo.Methods[0].Signature)
}

func TestWalkDegradesBrokenFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.go", "package shop\n\ntype Coupon struct{ Code string }\n")
	writeFile(t, root, "bad.go", "package shop\n\ntype Broken struct {\n")

	units, err := NewGoExtractor(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.NotEmpty(t, units[0].ParseError, "bad.go must carry its parse error")
	assert.Empty(t, units[1].ParseError)
	assert.Len(t, units[1].Decls, 1)
}

func TestWalkSkipsTestsIgnoredAndHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "order.go", "package shop\n\ntype Order struct{}\n")
	writeFile(t, root, "order_test.go", "package shop\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n\ntype Dep struct{}\n")
	writeFile(t, root, ".cache/tmp.go", "package tmp\n\ntype Tmp struct{}\n")

	units, err := NewGoExtractor([]string{"vendor"}, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Path, "order.go")
}

func TestIsIgnoredRel(t *testing.T) {
	patterns := []string{"vendor", "dist/", "gen/*"}
	tests := []struct {
		rel  string
		name string
		want bool
	}{
		{"vendor", "vendor", true},
		{"vendor/pkg/a.go", "a.go", true},
		{"dist", "dist", true},
		{"gen/out.go", "out.go", true},
		{"src/a.go", "a.go", false},
	}
	for _, tt := range tests {
		if got := isIgnoredRel(tt.rel, tt.name, patterns); got != tt.want {
			t.Errorf("isIgnoredRel(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestLoadDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.json")
	content := `{
  "units": [
    {
      "path": "src/Order.java",
      "language": "java",
      "decls": [
        {
          "name": "Order",
          "kind": "class",
          "fields": [{"name": "id", "type": "String"}]
        }
      ]
    }
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	units, err := LoadDescriptor(path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "java", units[0].Language)
	assert.Equal(t, "Order", units[0].Decls[0].Name)
}

func TestLoadDescriptorEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"units": []}`), 0644))
	_, err := LoadDescriptor(path)
	assert.Error(t, err)
}
