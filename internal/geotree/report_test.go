package geotree

import (
	"bytes"
	"testing"

	"addr-geo/internal/geodata"

	"github.com/stretchr/testify/assert"
)

func TestWriteReport(t *testing.T) {
	ds := kandal()
	ds.Villages = append(ds.Villages, geodata.Village{CommuneCode: "C404", NameEN: "Lost"})
	_, sum := Build(ds)

	var buf bytes.Buffer
	WriteReport(&buf, sum)
	out := buf.String()

	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "villages")
	assert.Regexp(t, `villages\s+│\s+2\s+│\s+1\s+│\s+1`, out)
	assert.Contains(t, out, "(unnamed 0, duplicates 0)")
}
