// Package store defines the StorageRecord, the unit persisted by both the
// online and offline stores. The same logical record is written to both;
// only the representation differs (online: flat string-typed hash fields,
// offline: typed columnar row). The encoding helpers here are the single
// place the two representations are derived from, which is what keeps the
// stores consistent.
package store

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/skylarkml/skylark/pkg/feature"
	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// Reserved column names present in every persisted record alongside the
// feature columns.
const (
	ColumnEntityID  = "entity_id"
	ColumnTimestamp = "timestamp"
	ColumnDate      = "date"
)

// PartitionDateLayout is the calendar-date format used for offline
// partition directories and the date column.
const PartitionDateLayout = "2006-01-02"

// Record is one ingested observation: an entity's computed feature values
// at a point in time, plus the partition date derived from that time.
type Record struct {
	GroupName     string
	EntityID      string
	Values        map[string]interface{}
	Timestamp     time.Time
	PartitionDate string
}

// NewRecord assembles a record and derives its partition date from the
// ingestion timestamp's UTC calendar date.
func NewRecord(group, entityID string, values map[string]interface{}, ts time.Time) *Record {
	return &Record{
		GroupName:     group,
		EntityID:      entityID,
		Values:        values,
		Timestamp:     ts.UTC(),
		PartitionDate: ts.UTC().Format(PartitionDateLayout),
	}
}

// Key returns the online store key for this record.
func (r *Record) Key() string {
	return r.GroupName + ":" + r.EntityID
}

// EncodeFields flattens the record into the online hash representation:
// every value becomes its string form, plus entity_id and the ISO-8601
// timestamp. Callers parse values back using DecodeValue and the declared
// feature type.
func (r *Record) EncodeFields() map[string]string {
	fields := make(map[string]string, len(r.Values)+2)
	for name, value := range r.Values {
		fields[name] = EncodeValue(value)
	}
	fields[ColumnEntityID] = r.EntityID
	fields[ColumnTimestamp] = r.Timestamp.Format(time.RFC3339Nano)
	return fields
}

// EncodeValue renders a single feature value as a string. Embeddings and
// other composite values are JSON-encoded.
func EncodeValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// DecodeValue parses the string form of a feature value back into the Go
// representation of its declared type.
func DecodeValue(s string, typ feature.Type) (interface{}, error) {
	switch typ {
	case feature.TypeNumerical:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "not a numerical value: "+s)
		}
		return v, nil
	case feature.TypeBoolean:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "not a boolean value: "+s)
		}
		return v, nil
	case feature.TypeTimestamp:
		v, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "not a timestamp value: "+s)
		}
		return v, nil
	case feature.TypeEmbedding:
		var v []float64
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeData, "not an embedding value: "+s)
		}
		return v, nil
	case feature.TypeCategorical, feature.TypeText:
		return s, nil
	default:
		return s, nil
	}
}
