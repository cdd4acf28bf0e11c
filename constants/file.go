package constants

import "strings"

// Format is the coarse document family used to pick a text recovery strategy.
type Format string

const (
	PDF         Format = "PDF"
	IMAGE       Format = "IMAGE"
	SPREADSHEET Format = "SPREADSHEET"
	WORD        Format = "WORD"
)

// FileTypes holds the formats the pipeline accepts.
var FileTypes = []Format{PDF, IMAGE, SPREADSHEET, WORD}

// AllowedExtensions holds the default allowed file extensions for purchase order ingestion.
var AllowedExtensions = map[string]Format{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"bmp":  IMAGE,
	"gif":  IMAGE,
	"xlsx": SPREADSHEET,
	"xlsm": SPREADSHEET,
	"docx": WORD,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns the format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) Format {
	return AllowedExtensions[NormalizeExt(ext)]
}

// MapMIMEToFormat maps a sniffed content type onto a format, or "" when unknown.
func MapMIMEToFormat(mime string) Format {
	switch {
	case mime == "application/pdf":
		return PDF
	case strings.HasPrefix(mime, "image/"):
		return IMAGE
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		mime == "application/vnd.ms-excel.sheet.macroEnabled.12":
		return SPREADSHEET
	case mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return WORD
	}
	return ""
}
