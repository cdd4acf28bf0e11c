package entity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
)

// documentNamespace seeds content-derived document IDs.
var documentNamespace = uuid.MustParse("8a5e7f0c-2f43-4c56-9d0e-6b1f7f3c2a10")

// RawDocument is the immutable pipeline input: the submitted bytes plus source metadata.
type RawDocument struct {
	ID          uuid.UUID        `json:"id"`
	Filename    string           `json:"filename"`
	Format      constants.Format `json:"format"`
	MIME        string           `json:"mime"`
	ContentHash string           `json:"content_hash"`
	data        []byte
}

// NewRawDocument sniffs the content type, falling back to the file extension,
// and copies data so later changes by the caller cannot reach the pipeline.
// The ID is derived from the content hash so reruns on the same bytes agree.
func NewRawDocument(filename string, data []byte) (*RawDocument, error) {
	if len(data) == 0 {
		return nil, common.NewAppError(common.CodeUnsupportedFormat, fmt.Sprintf("%s: empty document", filename), common.ErrInvalidInput)
	}
	mime := mimetype.Detect(data)
	format := constants.MapMIMEToFormat(mime.String())
	if format == "" {
		format = constants.MapExtToFormat(filepath.Ext(filename))
	}
	if format == "" {
		return nil, common.UnsupportedFormatError(fmt.Sprintf("%s: content type %s", filename, mime.String()))
	}

	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	return &RawDocument{
		ID:          uuid.NewSHA1(documentNamespace, []byte(hashHex)),
		Filename:    filename,
		Format:      format,
		MIME:        mime.String(),
		ContentHash: hashHex,
		data:        bytes.Clone(data),
	}, nil
}

// Reader returns a fresh reader over the document bytes.
func (d *RawDocument) Reader() *bytes.Reader { return bytes.NewReader(d.data) }

// Size is the document length in bytes.
func (d *RawDocument) Size() int64 { return int64(len(d.data)) }

// Bytes returns a copy of the document bytes.
func (d *RawDocument) Bytes() []byte { return bytes.Clone(d.data) }
