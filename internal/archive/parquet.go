package archive

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// headerRow marks cells that only carry a column name, so a zero-row
// result still records its columns.
const headerRow = -1

const (
	typeNull   = "null"
	typeString = "string"
	typeInt    = "int"
	typeFloat  = "float"
	typeBool   = "bool"
	typeTime   = "time"
)

type parquetCell struct {
	RowIndex    int64  `parquet:"row_index"`
	ColumnIndex int32  `parquet:"column_index"`
	ColumnName  string `parquet:"column_name"`
	Value       string `parquet:"value"`
	IsNull      bool   `parquet:"is_null"`
	ValueType   string `parquet:"value_type"`
}

type encodeResult struct {
	Data      []byte
	CellCount int64
}

func encodeRowSet(columns []string, rows [][]any) (encodeResult, error) {
	if len(columns) == 0 {
		return encodeResult{}, fmt.Errorf("columns are required")
	}

	cells := make([]parquetCell, 0, len(columns)*(len(rows)+1))
	for i, name := range columns {
		cells = append(cells, parquetCell{
			RowIndex:    headerRow,
			ColumnIndex: int32(i),
			ColumnName:  name,
			IsNull:      true,
			ValueType:   typeNull,
		})
	}
	for rowIndex, row := range rows {
		if len(row) != len(columns) {
			return encodeResult{}, fmt.Errorf("row %d has %d values, want %d", rowIndex, len(row), len(columns))
		}
		for columnIndex, value := range row {
			text, valueType := encodeValue(value)
			cells = append(cells, parquetCell{
				RowIndex:    int64(rowIndex),
				ColumnIndex: int32(columnIndex),
				ColumnName:  columns[columnIndex],
				Value:       text,
				IsNull:      valueType == typeNull,
				ValueType:   valueType,
			})
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetCell](buf)
	if _, err := writer.Write(cells); err != nil {
		return encodeResult{}, fmt.Errorf("write parquet cells: %w", err)
	}
	if err := writer.Close(); err != nil {
		return encodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	return encodeResult{Data: buf.Bytes(), CellCount: int64(len(cells))}, nil
}

func encodeValue(value any) (string, string) {
	switch typed := value.(type) {
	case nil:
		return "", typeNull
	case string:
		return typed, typeString
	case []byte:
		return string(typed), typeString
	case bool:
		return strconv.FormatBool(typed), typeBool
	case int:
		return strconv.FormatInt(int64(typed), 10), typeInt
	case int8:
		return strconv.FormatInt(int64(typed), 10), typeInt
	case int16:
		return strconv.FormatInt(int64(typed), 10), typeInt
	case int32:
		return strconv.FormatInt(int64(typed), 10), typeInt
	case int64:
		return strconv.FormatInt(typed, 10), typeInt
	case uint8:
		return strconv.FormatUint(uint64(typed), 10), typeInt
	case uint16:
		return strconv.FormatUint(uint64(typed), 10), typeInt
	case uint32:
		return strconv.FormatUint(uint64(typed), 10), typeInt
	case uint64:
		if typed > math.MaxInt64 {
			return strconv.FormatUint(typed, 10), typeString
		}
		return strconv.FormatUint(typed, 10), typeInt
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32), typeFloat
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64), typeFloat
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano), typeTime
	default:
		return fmt.Sprint(typed), typeString
	}
}

func decodeValue(text, valueType string, isNull bool) (any, error) {
	if isNull {
		return nil, nil
	}
	switch valueType {
	case typeString, "":
		return text, nil
	case typeInt:
		return strconv.ParseInt(text, 10, 64)
	case typeFloat:
		return strconv.ParseFloat(text, 64)
	case typeBool:
		return strconv.ParseBool(text)
	case typeTime:
		return time.Parse(time.RFC3339Nano, text)
	default:
		return nil, fmt.Errorf("unknown value type %q", valueType)
	}
}
