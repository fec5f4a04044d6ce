package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klytics/chojson/internal/grid"
)

var sampleWorkbook = filepath.Join("..", "..", "..", "testdata", "cho_202501.xlsx")

func BenchmarkLoadGridFixture(b *testing.B) {
	if _, err := os.Stat(sampleWorkbook); os.IsNotExist(err) {
		b.Skip("cho_202501.xlsx not found; run 'go run testdata/generate_fixtures.go'")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadGrid(sampleWorkbook, "印刷FORM"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadGridLarge(b *testing.B) {
	rows := make([][]grid.Cell, 2000)
	for i := range rows {
		row := make([]grid.Cell, 18)
		row[4] = grid.TextCell(fmt.Sprintf("町%d", i))
		for c := 5; c <= 8; c++ {
			row[c] = grid.NumberCell(float64(i * c))
		}
		rows[i] = row
	}
	path := filepath.Join(b.TempDir(), "large.xlsx")
	if err := WriteGrid(path, "印刷FORM", grid.New(rows)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadGrid(path, "印刷FORM"); err != nil {
			b.Fatal(err)
		}
	}
}
