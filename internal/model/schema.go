package model

// Field is a column of the canonical staging schema.
type Field int

const (
	FieldDate Field = iota
	FieldSymbol
	FieldOpen
	FieldHigh
	FieldLow
	FieldClose
	FieldAdjClose
	FieldVolume
)

// ColumnType is the warehouse type of a canonical column.
type ColumnType string

const (
	TypeDate   ColumnType = "DATE"
	TypeString ColumnType = "STRING"
	TypeFloat  ColumnType = "FLOAT64"
	TypeInt    ColumnType = "INT64"
)

var fieldNames = [...]string{
	FieldDate:     "date",
	FieldSymbol:   "symbol",
	FieldOpen:     "open",
	FieldHigh:     "high",
	FieldLow:      "low",
	FieldClose:    "close",
	FieldAdjClose: "adj_close",
	FieldVolume:   "volume",
}

var fieldTypes = [...]ColumnType{
	FieldDate:     TypeDate,
	FieldSymbol:   TypeString,
	FieldOpen:     TypeFloat,
	FieldHigh:     TypeFloat,
	FieldLow:      TypeFloat,
	FieldClose:    TypeFloat,
	FieldAdjClose: TypeFloat,
	FieldVolume:   TypeInt,
}

// Schema is the canonical column order of the staging table.
var Schema = []Field{
	FieldDate, FieldSymbol,
	FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose,
	FieldVolume,
}

// PriceFields are the columns rounded to two decimals.
var PriceFields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose}

// String returns the canonical column name.
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// Type returns the warehouse column type.
func (f Field) Type() ColumnType {
	if f < 0 || int(f) >= len(fieldTypes) {
		return ""
	}
	return fieldTypes[f]
}

// ColumnNames returns the canonical column names in schema order.
func ColumnNames() []string {
	out := make([]string, len(Schema))
	for i, f := range Schema {
		out[i] = f.String()
	}
	return out
}
