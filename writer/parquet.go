package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"txoflow/models"
)

// AlignedRecord is the parquet layout of one aligned option row.
type AlignedRecord struct {
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Contract     string  `parquet:"name=contract, type=BYTE_ARRAY, convertedtype=UTF8"`
	Strike       float64 `parquet:"name=strike, type=DOUBLE"`
	Type         string  `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	OpenInterest float64 `parquet:"name=open_interest, type=DOUBLE"`
	Price        float64 `parquet:"name=price, type=DOUBLE"`
	Notional     float64 `parquet:"name=notional, type=DOUBLE"`
	OIChangeD1   float64 `parquet:"name=oi_change_d1, type=DOUBLE"`
}

// GexRecord is the parquet layout of one strike's dealer gamma exposure.
type GexRecord struct {
	Date     string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Contract string  `parquet:"name=contract, type=BYTE_ARRAY, convertedtype=UTF8"`
	Strike   float64 `parquet:"name=strike, type=DOUBLE"`
	Gex      float64 `parquet:"name=gex, type=DOUBLE"`
}

// memoryFileWriter implements the ParquetFile interface over a byte buffer
// so files can be encoded fully in memory before hitting disk or S3.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "lzo":
		return parquet.CompressionCodec_LZO
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

func encodeParquet(schema interface{}, compression string, count int, recordAt func(int) interface{}) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for i := 0; i < count; i++ {
		if err := pw.Write(recordAt(i)); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}

// EncodeAligned encodes an aligned table as parquet. The deepest OI-change
// column exported is the one-day change; deeper history stays in the logs.
func EncodeAligned(table *models.AlignedTable, compression string) ([]byte, error) {
	date := table.AsOfDate.Format("2006-01-02")
	return encodeParquet(new(AlignedRecord), compression, len(table.Rows), func(i int) interface{} {
		row := table.Rows[i]
		return AlignedRecord{
			Date:         date,
			Contract:     row.ContractCode,
			Strike:       row.Strike,
			Type:         string(row.Type),
			OpenInterest: row.OpenInterest,
			Price:        row.Price,
			Notional:     row.Notional,
			OIChangeD1:   row.OIChangeD(1),
		}
	})
}

// EncodeGex encodes a dealer gamma exposure profile as parquet.
func EncodeGex(points []models.GexPoint, date, contract, compression string) ([]byte, error) {
	return encodeParquet(new(GexRecord), compression, len(points), func(i int) interface{} {
		return GexRecord{
			Date:     date,
			Contract: contract,
			Strike:   points[i].Strike,
			Gex:      points[i].Gex,
		}
	})
}
