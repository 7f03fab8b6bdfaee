package offline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	json "github.com/goccy/go-json"

	"github.com/skylarkml/skylark/pkg/skyerrors"
	"github.com/skylarkml/skylark/pkg/store"
)

const partitionPrefix = "date="

// ParquetStore implements Store on a local directory tree of parquet files.
type ParquetStore struct {
	root        string
	compression compress.Compression
	timeout     time.Duration
	alloc       memory.Allocator
	seq         atomic.Int64
}

// ParquetOptions configures the parquet offline store.
type ParquetOptions struct {
	// RootPath is the root directory of the partitioned tree. Created if
	// absent.
	RootPath string
	// Compression names the parquet codec: snappy (default), zstd, gzip,
	// or none.
	Compression string
	// RequestTimeout bounds every Append and Scan; zero means 30s.
	RequestTimeout time.Duration
}

// NewParquetStore creates the root directory and returns a store.
func NewParquetStore(opts ParquetOptions) (*ParquetStore, error) {
	if opts.RootPath == "" {
		return nil, skyerrors.New(skyerrors.ErrorTypeConfig, "offline root path must not be empty")
	}
	if err := os.MkdirAll(opts.RootPath, 0o755); err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to create offline root").
			WithDetail("path", opts.RootPath)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ParquetStore{
		root:        opts.RootPath,
		compression: parquetCompression(opts.Compression),
		timeout:     timeout,
		alloc:       memory.NewGoAllocator(),
	}, nil
}

// Append writes the record as a single-row parquet file in its partition.
// The file is written next to the partition and renamed in, so a concurrent
// scan sees either the whole row or nothing. The operation is bounded by
// the configured request timeout.
func (s *ParquetStore) Append(ctx context.Context, rec *store.Record) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeTimeout, "offline append cancelled")
	}

	partDir := filepath.Join(s.root, rec.GroupName, partitionPrefix+rec.PartitionDate)
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to create partition").
			WithDetail("partition", partDir)
	}

	schema, columns := rowSchema(rec)
	builder := array.NewRecordBuilder(s.alloc, schema)
	defer builder.Release()

	for i, col := range columns {
		appendValue(builder.Field(i), col.value)
	}

	arrowRec := builder.NewRecord()
	defer arrowRec.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(s.compression),
		parquet.WithAllocator(s.alloc),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(s.alloc))

	fw, err := pqarrow.NewFileWriter(schema, &buf, props, arrowProps)
	if err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to create parquet writer")
	}
	if err := fw.Write(arrowRec); err != nil {
		_ = fw.Close()
		return skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to write parquet row")
	}
	if err := fw.Close(); err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to finalize parquet file")
	}

	name := "part-" + time.Now().UTC().Format("20060102T150405") +
		"-" + strconv.FormatInt(s.seq.Add(1), 10) + ".parquet"
	tmp := filepath.Join(partDir, "."+name+".tmp")
	final := filepath.Join(partDir, name)

	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to write parquet file").
			WithDetail("path", tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to publish parquet file").
			WithDetail("path", final)
	}
	return nil
}

// Scan reads every partition of the group whose date falls in [start, end]
// inclusive. A group directory that does not exist is "no data", not an
// error; a partition directory that does not parse as date=YYYY-MM-DD is
// corrupt layout and fails the scan.
func (s *ParquetStore) Scan(ctx context.Context, group, start, end string) ([]*store.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	groupDir := filepath.Join(s.root, group)
	entries, err := os.ReadDir(groupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*store.Record{}, nil
		}
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to list group partitions").
			WithDetail("group", group)
	}

	var records []*store.Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeTimeout, "offline scan cancelled")
		}

		date, ok := strings.CutPrefix(entry.Name(), partitionPrefix)
		if !ok {
			return nil, skyerrors.Newf(skyerrors.ErrorTypeData,
				"corrupt partition directory %q in group %q", entry.Name(), group)
		}
		if _, err := time.Parse(store.PartitionDateLayout, date); err != nil {
			return nil, skyerrors.Newf(skyerrors.ErrorTypeData,
				"corrupt partition date %q in group %q", date, group)
		}
		if date < start || date > end {
			continue
		}

		partRecords, err := s.scanPartition(ctx, group, date, filepath.Join(groupDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, partRecords...)
	}

	if records == nil {
		records = []*store.Record{}
	}
	return records, nil
}

// Close is a no-op: every append is flushed and published before returning.
func (s *ParquetStore) Close() error {
	return nil
}

func (s *ParquetStore) scanPartition(ctx context.Context, group, date, dir string) ([]*store.Record, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to list partition files").
			WithDetail("partition", dir)
	}
	sort.Strings(files)

	var records []*store.Record
	for _, path := range files {
		fileRecords, err := s.readFile(ctx, group, date, path)
		if err != nil {
			return nil, err
		}
		records = append(records, fileRecords...)
	}
	return records, nil
}

func (s *ParquetStore) readFile(ctx context.Context, group, date, path string) ([]*store.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeStorage, "failed to read parquet file").
			WithDetail("path", path)
	}

	fr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "failed to open parquet file").
			WithDetail("path", path)
	}
	defer fr.Close()

	arrowReader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, s.alloc)
	if err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "failed to create arrow reader").
			WithDetail("path", path)
	}

	rr, err := arrowReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "failed to read parquet rows").
			WithDetail("path", path)
	}
	defer rr.Release()

	var records []*store.Record
	for rr.Next() {
		batch := rr.Record()
		for row := 0; row < int(batch.NumRows()); row++ {
			rec, err := rowToRecord(batch, row, group, date)
			if err != nil {
				return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "corrupt parquet row").
					WithDetail("path", path)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func rowToRecord(batch arrow.Record, row int, group, date string) (*store.Record, error) {
	rec := &store.Record{
		GroupName:     group,
		PartitionDate: date,
		Values:        make(map[string]interface{}, int(batch.NumCols())),
	}

	for i := 0; i < int(batch.NumCols()); i++ {
		name := batch.Schema().Field(i).Name
		value := columnValue(batch.Column(i), row)

		switch name {
		case store.ColumnEntityID:
			if s, ok := value.(string); ok {
				rec.EntityID = s
			}
		case store.ColumnTimestamp:
			s, ok := value.(string)
			if !ok {
				return nil, skyerrors.Newf(skyerrors.ErrorTypeData,
					"timestamp column is not a string in group %q", group)
			}
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, skyerrors.Newf(skyerrors.ErrorTypeData,
					"unparsable timestamp %q in group %q", s, group)
			}
			rec.Timestamp = ts
		default:
			rec.Values[name] = value
		}
	}
	return rec, nil
}

func columnValue(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}
	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(row)
	case *array.Int64:
		return c.Value(row)
	case *array.Float64:
		return c.Value(row)
	case *array.String:
		return c.Value(row)
	default:
		return nil
	}
}

// column pairs a field with the value appended to its builder.
type column struct {
	field arrow.Field
	value interface{}
}

// rowSchema builds the arrow schema for one record: entity_id and
// timestamp first, then the feature columns in sorted name order so the
// layout is stable across appends. Composite values (embeddings) are
// stored as JSON strings.
func rowSchema(rec *store.Record) (*arrow.Schema, []column) {
	names := make([]string, 0, len(rec.Values))
	for name := range rec.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]column, 0, len(names)+2)
	columns = append(columns,
		column{arrow.Field{Name: store.ColumnEntityID, Type: arrow.BinaryTypes.String}, rec.EntityID},
		column{arrow.Field{Name: store.ColumnTimestamp, Type: arrow.BinaryTypes.String}, rec.Timestamp.Format(time.RFC3339Nano)},
	)

	for _, name := range names {
		value := rec.Values[name]
		typ, normalized := arrowValue(value)
		columns = append(columns, column{
			field: arrow.Field{Name: name, Type: typ, Nullable: true},
			value: normalized,
		})
	}

	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = col.field
	}
	return arrow.NewSchema(fields, nil), columns
}

// arrowValue maps a computed feature value to its arrow column type,
// normalizing the value to the builder's expected Go type.
func arrowValue(value interface{}) (arrow.DataType, interface{}) {
	switch v := value.(type) {
	case nil:
		return arrow.BinaryTypes.String, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, v
	case int:
		return arrow.PrimitiveTypes.Int64, int64(v)
	case int32:
		return arrow.PrimitiveTypes.Int64, int64(v)
	case int64:
		return arrow.PrimitiveTypes.Int64, v
	case float32:
		return arrow.PrimitiveTypes.Float64, float64(v)
	case float64:
		return arrow.PrimitiveTypes.Float64, v
	case string:
		return arrow.BinaryTypes.String, v
	case time.Time:
		return arrow.BinaryTypes.String, v.Format(time.RFC3339Nano)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return arrow.BinaryTypes.String, ""
		}
		return arrow.BinaryTypes.String, string(data)
	}
}

func appendValue(b array.Builder, value interface{}) {
	if value == nil {
		b.AppendNull()
		return
	}
	switch bld := b.(type) {
	case *array.BooleanBuilder:
		bld.Append(value.(bool))
	case *array.Int64Builder:
		bld.Append(value.(int64))
	case *array.Float64Builder:
		bld.Append(value.(float64))
	case *array.StringBuilder:
		bld.Append(value.(string))
	default:
		b.AppendNull()
	}
}

func parquetCompression(name string) compress.Compression {
	switch name {
	case "zstd":
		return compress.Codecs.Zstd
	case "gzip":
		return compress.Codecs.Gzip
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

