package geotree

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteReport：以表格输出一次构建的逐级统计（输入、入树、丢弃），供命令行查看
func WriteReport(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Level", "Input", "Tree", "Dropped"})
	t.AppendRow(table.Row{"provinces", s.Input.Provinces, s.Tree.Provinces, "-"})
	t.AppendRow(table.Row{"districts", s.Input.Districts, s.Tree.Districts, s.Dropped.Districts})
	t.AppendRow(table.Row{"communes", s.Input.Communes, s.Tree.Communes, s.Dropped.Communes})
	t.AppendRow(table.Row{"villages", s.Input.Villages, s.Tree.Villages, s.Dropped.Villages})
	t.Render()
	_, _ = fmt.Fprintf(w, "(unnamed %d, duplicates %d)\n", s.Dropped.Unnamed, s.Duplicates)
}
