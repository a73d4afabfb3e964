package services

import (
	"fmt"
	"math"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/types"
)

const parquetReaders = 4

// readParquet reads every flat leaf column of a Parquet file. Timestamp and
// date columns come back as time.Time; decimals as float64.
func readParquet(path string) (*rawTable, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, parquetReaders)
	if err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}
	defer pr.ReadStop()

	numRows := pr.GetNumRows()
	sh := pr.SchemaHandler

	raw := &rawTable{}
	var columns [][]any
	for _, inPath := range sh.ValueColumns {
		exPath := common.StrToPath(sh.InPathToExPath[inPath])
		if len(exPath) != 2 {
			// nested or repeated fields have no place in a flat fact table
			continue
		}

		var values []any
		if numRows > 0 {
			values, _, _, err = pr.ReadColumnByPath(inPath, numRows)
			if err != nil {
				return nil, fmt.Errorf("read column %s: %w", exPath[1], err)
			}
		}
		if int64(len(values)) != numRows {
			return nil, fmt.Errorf("column %s: got %d values for %d rows", exPath[1], len(values), numRows)
		}

		element := sh.SchemaElements[sh.MapIndex[inPath]]
		for i, v := range values {
			values[i] = parquetValue(element, v)
		}

		raw.columns = append(raw.columns, exPath[1])
		columns = append(columns, values)
	}

	raw.rows = make([][]any, numRows)
	for r := range raw.rows {
		row := make([]any, len(columns))
		for c := range columns {
			row[c] = columns[c][r]
		}
		raw.rows[r] = row
	}

	return raw, nil
}

// parquetValue converts a physical value into the representation the
// normalizer understands, using the column's logical or converted type.
func parquetValue(se *parquet.SchemaElement, v any) any {
	if v == nil {
		return nil
	}

	if se.IsSetLogicalType() {
		lt := se.GetLogicalType()
		switch {
		case lt.IsSetTIMESTAMP():
			ts := lt.GetTIMESTAMP()
			n, ok := v.(int64)
			if !ok {
				return v
			}
			// Naive timestamps are wall-clock values; decode them as UTC so the
			// calendar date does not depend on the host zone.
			unit := ts.GetUnit()
			switch {
			case unit != nil && unit.IsSetNANOS():
				return types.TIMESTAMP_NANOSToTime(n, true)
			case unit != nil && unit.IsSetMICROS():
				return types.TIMESTAMP_MICROSToTime(n, true)
			default:
				return types.TIMESTAMP_MILLISToTime(n, true)
			}
		case lt.IsSetDATE():
			if days, ok := v.(int32); ok {
				return epochDay(days)
			}
		case lt.IsSetDECIMAL():
			return decimalValue(se, v)
		}
	}

	if se.IsSetConvertedType() {
		switch se.GetConvertedType() {
		case parquet.ConvertedType_TIMESTAMP_MILLIS:
			if n, ok := v.(int64); ok {
				return types.TIMESTAMP_MILLISToTime(n, true)
			}
		case parquet.ConvertedType_TIMESTAMP_MICROS:
			if n, ok := v.(int64); ok {
				return types.TIMESTAMP_MICROSToTime(n, true)
			}
		case parquet.ConvertedType_DATE:
			if days, ok := v.(int32); ok {
				return epochDay(days)
			}
		case parquet.ConvertedType_DECIMAL:
			return decimalValue(se, v)
		}
	}

	if se.GetType() == parquet.Type_INT96 {
		if s, ok := v.(string); ok {
			return types.INT96ToTime(s)
		}
	}

	return v
}

func epochDay(days int32) time.Time {
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(days))
}

func decimalValue(se *parquet.SchemaElement, v any) any {
	scale := math.Pow10(int(se.GetScale()))
	switch n := v.(type) {
	case int32:
		return float64(n) / scale
	case int64:
		return float64(n) / scale
	case string:
		return types.DECIMAL_BYTE_ARRAY_ToString([]byte(n), int(se.GetPrecision()), int(se.GetScale()))
	}
	return v
}
