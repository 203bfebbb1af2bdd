// Package workbook reads pictures out of spreadsheets and writes masked
// replacements back at exactly the same anchors.
//
// The Store interface is the only thing the pipeline sees. ExcelStore handles
// .xlsx/.xlsm through excelize; LegacyStore handles OLE2 .xls files by
// converting them through an office application and delegating to
// ExcelStore. NewStore picks the right one for a file, so callers never branch
// on format.
//
// Picture geometry (cell, pixel offset, display size, anchor kind) is read
// from the sheet drawing parts directly, because it is what has to survive the
// round trip. Placement in a Session is serialized: each call holds the
// session lock for one cell only.
package workbook
