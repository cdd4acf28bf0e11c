package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Format is the output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the format from the output file extension, CSV by default.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Options select the columns and layout of an export.
type Options struct {
	Columns []string
	Layout  string
}

func (o Options) columns() []string {
	if len(o.Columns) == 0 {
		return append([]string(nil), constants.DefaultColumns...)
	}
	return append([]string(nil), o.Columns...)
}

// Exporter writes sales orders as CSV or XLSX. It never modifies the records,
// so the same batch can be exported again in another format.
type Exporter struct {
	opts   Options
	logger *slog.Logger
}

func NewExporter(opts Options, logger *slog.Logger) (*Exporter, error) {
	if opts.Layout == "" {
		opts.Layout = constants.LayoutDenormalized
	}
	v := common.NewValidator().
		Field("layout", opts.Layout, common.OneOf(constants.LayoutDenormalized, constants.LayoutTwoBlock))
	for i, c := range opts.Columns {
		if !constants.IsKnownColumn(c) {
			v.Field(fmt.Sprintf("columns[%d]", i), c, common.OneOf(constants.KnownColumns()...))
		}
	}
	if v.HasErrors() {
		return nil, common.NewAppError(common.CodeConfig, v.ErrorMessage(), common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{opts: opts, logger: logger}, nil
}

// Write renders orders to w.
func (e *Exporter) Write(w io.Writer, format Format, orders []*entity.SalesOrderRecord) error {
	t := BuildTable(orders, e.opts)
	var err error
	switch format {
	case FormatCSV:
		err = writeCSV(w, t)
	case FormatXLSX:
		err = writeXLSX(w, t)
	default:
		return common.ExportError(fmt.Sprintf("unknown format %q", format), common.ErrInvalidInput)
	}
	if err != nil {
		return common.ExportError("write "+string(format), err)
	}
	return nil
}

// ExportFile writes orders to path atomically: the file either holds the
// complete export or is left as it was.
func (e *Exporter) ExportFile(ctx context.Context, path string, format Format, orders []*entity.SalesOrderRecord) error {
	start := time.Now()
	err := WriteFileAtomic(path, func(w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return e.Write(w, format, orders)
	})
	if err != nil {
		e.logger.Error("export.failed", "path", path, "format", string(format), "error", err)
		return err
	}
	rows := 0
	for _, so := range orders {
		rows += len(so.Lines)
	}
	e.logger.Info("export."+string(format)+".ok",
		"path", path,
		"orders", len(orders),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(r.Cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFileAtomic writes through a temp file in the destination directory,
// syncs it and renames it over path. On any failure the temp file is removed
// and an ExportError returned.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return common.ExportError("create temp file", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		if common.ErrorCode(err) == common.CodeExport {
			return err
		}
		return common.ExportError("write "+filepath.Base(path), err)
	}
	if err = bw.Flush(); err != nil {
		return common.ExportError("flush "+tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return common.ExportError("sync "+tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return common.ExportError("close "+tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return common.ExportError("chmod "+tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return common.ExportError("rename to "+path, err)
	}
	return nil
}
