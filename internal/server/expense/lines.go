// Package expense implements the voucher detail-list workflow used when
// drafting a servicio's expense sheet: validated line adds with eager
// attachment upload, idempotent removal, and a running total that is
// always the exact sum of the current lines.
package expense

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/transdovic/backoffice/internal/common"
)

// Uploader is the object-storage collaborator for voucher attachments.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
}

// Attachment is a voucher file accompanying one line.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// DetailLine is one in-memory expense line of a draft sheet. LocalID keys
// the line inside the draft only; it is never persisted. Lines are never
// mutated in place: removal and re-add only.
type DetailLine struct {
	LocalID        string          `json:"local_id"`
	Amount         decimal.Decimal `json:"amount"`
	DocumentNumber string          `json:"document_number"`
	VoucherURL     string          `json:"voucher_url,omitempty"`
}

// LineList is the ordered draft sheet. Insertion order is display order.
type LineList struct {
	uploader Uploader
	lines    []DetailLine
}

// NewLineList builds an empty sheet. uploader may be nil if no line will
// carry an attachment.
func NewLineList(uploader Uploader) *LineList {
	return &LineList{uploader: uploader}
}

// StorageKey derives the object-storage key for a voucher file from the
// current date and the original file name.
func StorageKey(fileName string) string {
	d := time.Now()
	return fmt.Sprintf("vouchers/%d/%d/%d/%v-%s", d.Year(), d.Month(), d.Day(), uuid.New(), fileName)
}

// AddLine validates the input, uploads the attachment if present, and
// appends a new line. Validation failures happen before any network call.
// An upload failure adds nothing: either the line lands with its resolved
// voucher URL or the sheet is unchanged.
func (l *LineList) AddLine(ctx context.Context, amount, documentNumber string, file *Attachment) (DetailLine, error) {
	if amount == "" {
		return DetailLine{}, &common.ValidationError{Field: "amount", Reason: "required"}
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return DetailLine{}, &common.ValidationError{Field: "amount", Reason: "not a number"}
	}
	if parsed.IsNegative() {
		return DetailLine{}, &common.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if documentNumber == "" {
		return DetailLine{}, &common.ValidationError{Field: "document_number", Reason: "required"}
	}

	var voucherURL string
	if file != nil {
		key := StorageKey(file.Name)
		if err := l.uploader.Upload(ctx, key, file.Body, file.ContentType); err != nil {
			remote, ok := err.(*common.RemoteError)
			if !ok {
				remote = common.NewRemoteError(err.Error(), err)
			}
			return DetailLine{}, &common.UploadError{Remote: remote}
		}
		voucherURL = l.uploader.PublicURL(key)
	}

	line := DetailLine{
		LocalID:        uuid.NewString(),
		Amount:         parsed,
		DocumentNumber: documentNumber,
		VoucherURL:     voucherURL,
	}
	l.lines = append(l.lines, line)
	return line, nil
}

// RemoveLine drops the line with the given localID. Removing an unknown
// id is a no-op.
func (l *LineList) RemoveLine(localID string) {
	for i, line := range l.lines {
		if line.LocalID == localID {
			l.lines = append(l.lines[:i], l.lines[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the current lines in display order.
func (l *LineList) Lines() []DetailLine {
	out := make([]DetailLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of lines.
func (l *LineList) Len() int { return len(l.lines) }

// Total folds the current lines' amounts. It is recomputed on every call
// and never cached.
func (l *LineList) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l.lines {
		total = total.Add(line.Amount)
	}
	return total
}
